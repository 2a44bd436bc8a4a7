package mlp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNoiseGeneratorRecurrence verifies the noise generator against
// the recurrence
// seed' = ((seed << 16) ^ (seed>>7 & 0xFFFF) ^ ((seed>>7 & 0xFFFF) << 5)) & 0xFFFFFFFF
// starting from seed 0x12345, and checks the two emitted noise channels
// sample by sample.
func TestNoiseGeneratorRecurrence(t *testing.T) {
	const blockSize = 16
	const noiseShift = 3

	seed := uint32(0x12345)
	wantSeed := seed
	var want0, want1 []int32
	for i := 0; i < blockSize; i++ {
		shifted := (wantSeed >> 7) & 0xFFFF
		want0 = append(want0, int32(int8(wantSeed>>15))<<noiseShift)
		want1 = append(want1, int32(int8(shifted))<<noiseShift)
		wantSeed = (wantSeed << 16) ^ shifted ^ (shifted << 5)
	}

	// A single matrix that projects only the two noise channels into
	// channel 0 exposes them directly: coeff[1] = coeff[2] = 1<<14 with
	// max_matrix_channel = 0 makes channel 0 = noise0 + noise1.
	channels := make([][]int32, 1)
	channels[0] = make([]int32, blockSize)
	m := MatrixParameters{OutChannel: 0, Coeff: [MaxChannels]int32{0, 1 << 14, 1 << 14}}

	rematrixChannels(channels, 0, noiseShift, &seed, []MatrixParameters{m}, [MaxChannels]int{})

	require.Equal(t, wantSeed, seed)
	for i := 0; i < blockSize; i++ {
		require.Equalf(t, want0[i]+want1[i], channels[0][i], "sample %d", i)
	}
}

// TestRematrixChannelsMatrixExpression checks one rematrix stage against
// its defining expression: out[i] = mask(sum(ch[c][i]*coeff[c]) >> 14,
// quant) + bypassed_LSB[i], with the noise channels silenced by zero
// coefficients.
func TestRematrixChannelsMatrixExpression(t *testing.T) {
	channels := [][]int32{
		{100, -200, 300, -400},
		{7, 14, 21, 28},
	}
	want := make([]int32, 4)
	for i := range want {
		sum := int64(channels[0][i])*int64(1<<13) + int64(channels[1][i])*int64(-(1 << 14))
		want[i] = mask(int32(sum>>14), 2) + 1
	}

	m := MatrixParameters{
		OutChannel:  0,
		Coeff:       [MaxChannels]int32{1 << 13, -(1 << 14)},
		BypassedLSB: []int32{1, 1, 1, 1},
	}
	seed := uint32(0)
	quant := [MaxChannels]int{0: 2}
	rematrixChannels(channels, 1, 0, &seed, []MatrixParameters{m}, quant)

	require.Equal(t, want, channels[0])
	require.Equal(t, []int32{7, 14, 21, 28}, channels[1], "non-output channel must be untouched")
}

// TestApplyOutputShift checks the post-rematrix output left shift.
func TestApplyOutputShift(t *testing.T) {
	channels := [][]int32{
		{1, -2, 3},
		{4, 5, -6},
	}
	applyOutputShift(channels, 1, [MaxChannels]int{0: 2, 1: 0})
	require.Equal(t, []int32{4, -8, 12}, channels[0])
	require.Equal(t, []int32{4, 5, -6}, channels[1])
}
