package mlp

import (
	"dvda/bitio"
)

// decodeResidualData reads one block's worth of per-channel residuals:
// each matrix's bypassed LSBs (appended in place, so
// they accumulate across the whole substream), then each channel's
// Huffman-coded MSB plus raw LSBs, offset and quantized per channel.
func decodeResidualData(r *bitio.Reader, minChannel, maxChannel, blockSize int, matrix []MatrixParameters, quantStepSize [MaxChannels]int, channel [MaxChannels]ChannelParameters) ([MaxChannels][]int32, []MatrixParameters, error) {
	lsbBits := [MaxChannels]int{}
	signedOffset := [MaxChannels]int32{}

	for c := minChannel; c <= maxChannel; c++ {
		lsbBits[c] = channel[c].HuffmanLSBs - quantStepSize[c]
		if channel[c].Codebook != 0 {
			signShift := lsbBits[c] + 2 - channel[c].Codebook
			if signShift >= 0 {
				signedOffset[c] = channel[c].HuffmanOffset - int32(7*(1<<uint(lsbBits[c]))) - int32(1<<uint(signShift))
			} else {
				signedOffset[c] = channel[c].HuffmanOffset - int32(7*(1<<uint(lsbBits[c])))
			}
		} else {
			signShift := lsbBits[c] - 1
			if signShift >= 0 {
				signedOffset[c] = channel[c].HuffmanOffset - int32(1<<uint(signShift))
			} else {
				signedOffset[c] = channel[c].HuffmanOffset
			}
		}
	}

	var residuals [MaxChannels][]int32
	for c := 0; c <= maxChannel; c++ {
		residuals[c] = make([]int32, 0, blockSize)
	}

	matrixOut := make([]MatrixParameters, len(matrix))
	copy(matrixOut, matrix)
	for m := range matrixOut {
		matrixOut[m].BypassedLSB = append([]int32(nil), matrix[m].BypassedLSB...)
	}

	for i := 0; i < blockSize; i++ {
		for m := range matrixOut {
			if matrixOut[m].LSBBypass {
				v, err := r.ReadBits(1)
				if err != nil {
					return residuals, matrixOut, err
				}
				matrixOut[m].BypassedLSB = append(matrixOut[m].BypassedLSB, int32(v))
			} else {
				matrixOut[m].BypassedLSB = append(matrixOut[m].BypassedLSB, 0)
			}
		}

		for c := minChannel; c <= maxChannel; c++ {
			var msb int
			if channel[c].Codebook != 0 {
				v, err := readHuffmanCode(r, channel[c].Codebook)
				if err != nil {
					return residuals, matrixOut, err
				}
				msb = v
			}

			lsb, err := r.ReadBits(lsbBits[c])
			if err != nil {
				return residuals, matrixOut, err
			}

			value := ((int32(msb) << uint(lsbBits[c])) + int32(lsb) + signedOffset[c]) << uint(quantStepSize[c])
			residuals[c] = append(residuals[c], value)
		}
	}

	return residuals, matrixOut, nil
}
