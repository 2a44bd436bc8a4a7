// Package mlp implements the L4b Meridian Lossless Packing decoder: major
// sync discovery, substream parity/CRC validation, restart header and
// decoding-parameter parsing, FIR+IIR filter synthesis over Huffman-coded
// residuals, rematrixing, noise generation, output shifting, and
// RIFF-WAVE channel reordering.
package mlp

import "dvda/chanmap"

const (
	// MaxSubstreams is the maximum number of parallel MLP substreams in
	// a frame.
	MaxSubstreams = 2

	// MaxMatrices is the maximum number of rematrix stages per substream.
	MaxMatrices = 6

	// MaxChannels is 6 audio channels plus the 2 virtual noise channels
	// used only as rematrix inputs.
	MaxChannels = 8
)

// StreamParameters is the stream-wide configuration latched from a major
// sync.
type StreamParameters struct {
	Group0BPS         int
	Group1BPS         int
	Group0Rate        int
	Group1Rate        int
	ChannelAssignment int
}

// bpsTable and rateTable mirror the PCM codec's decoding tables; MLP's
// major sync carries the same 4-bit bps/rate codes.
var bpsTable = map[uint32]int{0: 16, 1: 20, 2: 24}
var rateTable = map[uint32]int{
	0: 48000, 1: 96000, 2: 192000,
	8: 44100, 9: 88200, 10: 176400,
}

// ChannelLayout returns the channel count, RIFF-WAVE mask, and
// channel-reorder permutation for this stream's channel_assignment.
func (p StreamParameters) ChannelLayout() (chanmap.Assignment, bool) {
	return chanmap.Lookup(p.ChannelAssignment)
}

// RestartHeader resets a substream's decode state.
type RestartHeader struct {
	MinChannel        int
	MaxChannel        int
	MaxMatrixChannel  int
	NoiseShift        int
	NoiseGenSeed      uint32
	ChannelAssignment [MaxChannels]int
}

// MatrixParameters is one rematrix stage.
type MatrixParameters struct {
	OutChannel     int
	FractionalBits int
	LSBBypass      bool
	Coeff          [MaxChannels]int32
	BypassedLSB    []int32 // one bit (0 or 1) per sample in the block
}

// FilterParameters describes one FIR or IIR filter.
type FilterParameters struct {
	Order int
	Shift int
	Coeff []int32
	State []int32 // persists across blocks; most-recent-last
}

// ChannelParameters is the per-channel decoding configuration.
type ChannelParameters struct {
	FIR FilterParameters
	IIR FilterParameters

	HuffmanOffset int32
	Codebook      int
	HuffmanLSBs   int
}

// DecodingParameters are the block-scoped parameters that persist across
// blocks within a frame, and across frames until overwritten.
type DecodingParameters struct {
	Flags [8]bool

	BlockSize int

	Matrix []MatrixParameters

	OutputShift    [MaxChannels]int
	QuantStepSize  [MaxChannels]int
	Channel        [MaxChannels]ChannelParameters
}

// clone deep-copies p so block-to-block mutation of slices (matrix,
// coefficients) doesn't alias a previous block's parameters.
func (p DecodingParameters) clone() DecodingParameters {
	out := p
	if p.Matrix != nil {
		out.Matrix = make([]MatrixParameters, len(p.Matrix))
		copy(out.Matrix, p.Matrix)
	}
	for i := range out.Channel {
		out.Channel[i].FIR.Coeff = append([]int32(nil), p.Channel[i].FIR.Coeff...)
		out.Channel[i].FIR.State = append([]int32(nil), p.Channel[i].FIR.State...)
		out.Channel[i].IIR.Coeff = append([]int32(nil), p.Channel[i].IIR.Coeff...)
		out.Channel[i].IIR.State = append([]int32(nil), p.Channel[i].IIR.State...)
	}
	return out
}

// substream holds one substream's persistent decode state.
type substream struct {
	header     RestartHeader
	haveHeader bool
	params     DecodingParameters
	haveParams bool

	// residuals[c] holds one block's worth of reconstructed residuals
	// for channel c.
	residuals [MaxChannels][]int32
}
