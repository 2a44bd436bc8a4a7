package mlp

// rematrixChannels applies a substream's rematrix stages in place over
// channels[0..maxMatrixChannel], using two generated pseudo-random noise
// channels as additional matrix inputs. noiseGenSeed
// is updated in place so the generator's state carries into the next
// block/frame.
func rematrixChannels(channels [][]int32, maxMatrixChannel, noiseShift int, noiseGenSeed *uint32, matrix []MatrixParameters, quantStepSize [MaxChannels]int) {
	blockSize := len(channels[0])

	noise0 := make([]int32, blockSize)
	noise1 := make([]int32, blockSize)
	seed := *noiseGenSeed
	for i := 0; i < blockSize; i++ {
		shifted := (seed >> 7) & 0xFFFF
		noise0[i] = int32(int8(seed>>15)) << uint(noiseShift)
		noise1[i] = int32(int8(shifted)) << uint(noiseShift)
		seed = (seed << 16) ^ shifted ^ (shifted << 5)
	}
	*noiseGenSeed = seed

	for _, m := range matrix {
		for i := 0; i < blockSize; i++ {
			var sum int64
			for c := 0; c <= maxMatrixChannel; c++ {
				sum += int64(channels[c][i]) * int64(m.Coeff[c])
			}
			sum += int64(noise0[i]) * int64(m.Coeff[maxMatrixChannel+1])
			sum += int64(noise1[i]) * int64(m.Coeff[maxMatrixChannel+2])

			bypass := int32(0)
			if i < len(m.BypassedLSB) {
				bypass = m.BypassedLSB[i]
			}
			channels[m.OutChannel][i] = mask(int32(sum>>14), quantStepSize[m.OutChannel]) + bypass
		}
	}
}

// applyOutputShift left-shifts every sample of each channel up to
// maxMatrixChannel by that channel's configured output_shift, applied
// after rematrixing.
func applyOutputShift(channels [][]int32, maxMatrixChannel int, outputShift [MaxChannels]int) {
	for c := 0; c <= maxMatrixChannel; c++ {
		shift := outputShift[c]
		if shift == 0 {
			continue
		}
		for i := range channels[c] {
			channels[c][i] <<= uint(shift)
		}
	}
}
