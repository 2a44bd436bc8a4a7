// Package pcm implements the L4a DVD-Audio PCM decoder: parsing the PCM
// stream-parameter header and applying the fixed byte-deinterleave table
// keyed by (bits-per-sample, channel count) to recover per-channel
// signed samples.
package pcm

import (
	"github.com/pkg/errors"

	"dvda/bitio"
	"dvda/chanmap"
)

// bpsTable maps the 4-bit bps code to bits-per-sample. Code 1 (20
// bits) is defined but has no deinterleave table; it has no entry in
// bpsIndex, so building a decoder for it fails as unsupported.
var bpsTable = map[uint32]int{0: 16, 1: 20, 2: 24}

// bpsIndex maps bits-per-sample to the row of aobByteSwap/AOB_BYTE_SWAP
// that applies to it. Only 16 and 24 bit PCM are supported.
var bpsIndex = map[int]int{16: 0, 24: 1}

// rateTable maps the 4-bit rate code to its sample rate in Hz.
var rateTable = map[uint32]int{
	0: 48000, 1: 96000, 2: 192000,
	8: 44100, 9: 88200, 10: 176400,
}

// Parameters is the decoded DVD-Audio PCM stream-parameter header.
type Parameters struct {
	BitsPerSample     int
	SampleRate        int
	ChannelAssignment int
	Channels          int
	ChannelMask       uint32
}

// ParseParameters parses the PCM header that immediately follows the
// audio-packet header's pad-2-size byte: 16-bit
// first-audio-frame, 8-bit skipped, four 4-bit group bps/rate codes,
// 8-bit skipped, 5-bit channel_assignment, 8-bit skipped, 8-bit CRC.
func ParseParameters(r *bitio.Reader) (Parameters, error) {
	if err := r.SkipBits(16); err != nil { // first_audio_frame
		return Parameters{}, err
	}
	if err := r.SkipBits(8); err != nil {
		return Parameters{}, err
	}
	group0bps, err := r.ReadBits(4)
	if err != nil {
		return Parameters{}, err
	}
	if err := r.SkipBits(4); err != nil { // group_1_bps
		return Parameters{}, err
	}
	group0rate, err := r.ReadBits(4)
	if err != nil {
		return Parameters{}, err
	}
	if err := r.SkipBits(4); err != nil { // group_1_rate
		return Parameters{}, err
	}
	if err := r.SkipBits(8); err != nil {
		return Parameters{}, err
	}
	chanAssign, err := r.ReadBits(5)
	if err != nil {
		return Parameters{}, err
	}
	if err := r.SkipBits(8); err != nil {
		return Parameters{}, err
	}
	if err := r.SkipBits(8); err != nil { // CRC
		return Parameters{}, err
	}

	bps, ok := bpsTable[group0bps]
	if !ok {
		return Parameters{}, errors.Errorf("pcm: unknown bps code %d", group0bps)
	}
	rate, ok := rateTable[group0rate]
	if !ok {
		return Parameters{}, errors.Errorf("pcm: unknown rate code %d", group0rate)
	}
	assignment, ok := chanmap.Lookup(int(chanAssign))
	if !ok {
		return Parameters{}, errors.Errorf("pcm: channel_assignment %d out of range", chanAssign)
	}

	return Parameters{
		BitsPerSample:     bps,
		SampleRate:        rate,
		ChannelAssignment: int(chanAssign),
		Channels:          assignment.Channels,
		ChannelMask:       assignment.Mask,
	}, nil
}

// Decoder deinterleaves DVD-Audio PCM chunks into per-channel sample
// buffers for a fixed (bits-per-sample, channel-count) pair.
type Decoder struct {
	bpsIdx         int
	bytesPerSample int
	channels       int
	chunkSize      int
}

// NewDecoder returns a Decoder for the given bits-per-sample and channel
// count (1..6). bitsPerSample must be 16 or 24.
func NewDecoder(bitsPerSample, channels int) (*Decoder, error) {
	idx, ok := bpsIndex[bitsPerSample]
	if !ok {
		return nil, errors.Errorf("pcm: unsupported bits-per-sample %d", bitsPerSample)
	}
	if channels < 1 || channels > 6 {
		return nil, errors.Errorf("pcm: unsupported channel count %d", channels)
	}
	bytesPerSample := bitsPerSample / 8
	return &Decoder{
		bpsIdx:         idx,
		bytesPerSample: bytesPerSample,
		channels:       channels,
		chunkSize:      bytesPerSample * channels * 2,
	}, nil
}

// DecodePacket consumes whole chunks from payload (channels*2*bytesPerSample
// bytes each), appending decoded samples to channels[c] round-robin, and
// discarding any trailing bytes shorter than a chunk. It
// returns the number of PCM frames produced, always a multiple of 2.
func (d *Decoder) DecodePacket(payload []byte, channels [][]int32) (int, error) {
	if len(channels) != d.channels {
		return 0, errors.Errorf("pcm: expected %d channel buffers, got %d", d.channels, len(channels))
	}

	swap := aobByteSwap[d.bpsIdx][d.channels-1]
	unswapped := make([]byte, d.chunkSize)
	frames := 0

	for len(payload) >= d.chunkSize {
		chunk := payload[:d.chunkSize]
		for i := 0; i < d.chunkSize; i++ {
			unswapped[swap[i]] = chunk[i]
		}

		for i := 0; i < d.channels*2; i++ {
			off := i * d.bytesPerSample
			sample := decodeSigned(unswapped[off:off+d.bytesPerSample], d.bytesPerSample)
			ch := i % d.channels
			channels[ch] = append(channels[ch], sample)
		}

		payload = payload[d.chunkSize:]
		frames += 2
	}

	return frames, nil
}

// decodeSigned decodes a little-endian signed integer of 2 or 3 bytes.
func decodeSigned(b []byte, n int) int32 {
	switch n {
	case 2:
		u := uint32(b[0]) | uint32(b[1])<<8
		if b[1]&0x80 != 0 {
			return int32(u) - 0x10000
		}
		return int32(u)
	case 3:
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		if b[2]&0x80 != 0 {
			return int32(u) - 0x1000000
		}
		return int32(u)
	default:
		panic("pcm: decodeSigned: unsupported byte width")
	}
}
