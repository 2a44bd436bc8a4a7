package track

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dvda/disc"
)

// mlpFrame assembles one complete stereo single-substream MLP frame in
// the same identity-filter shape the mlp package's own tests use: one
// 8-sample block, codebook 0, huffman_lsbs 4, so a stored LSB value v
// decodes to the sample v-8. withSync controls the major sync (and,
// with it, the restart header and decoding parameters).
func mlpFrame(withSync bool, residA, residB uint32) []byte {
	sub := &bitBuilder{}
	if withSync {
		sub.push(1, 1) // parameters present
		sub.push(1, 1) // restart header present

		sub.push(13, 0x18F5)
		sub.push(1, 0) // noise_type
		sub.push(16, 0)
		sub.push(4, 0) // min_channel
		sub.push(4, 1) // max_channel
		sub.push(4, 1) // max_matrix_channel
		sub.push(4, 0) // noise_shift
		sub.push(23, 0)
		sub.push(19, 0)
		sub.push(1, 0)
		sub.push(8, 0)
		sub.push(16, 0)
		sub.push(6, 0)
		sub.push(6, 1)
		sub.push(8, 0) // checksum

		sub.push(1, 0) // flags -> all default true
		sub.push(1, 0) // block_size -> 8
		sub.push(1, 0) // matrices -> none
		sub.push(1, 0) // output shifts -> 0
		sub.push(1, 0) // quant step sizes -> 0
		for c := 0; c < 2; c++ {
			sub.push(1, 1)
			sub.push(1, 0) // FIR
			sub.push(1, 0) // IIR
			sub.push(1, 0) // huffman_offset
			sub.push(2, 0) // codebook 0
			sub.push(5, 4) // huffman_lsbs
		}
	} else {
		sub.push(1, 0) // reuse previous block's parameters
	}
	for i := 0; i < 8; i++ {
		sub.push(4, residA)
		sub.push(4, residB)
	}
	sub.push(1, 1) // substream end

	payload := sub.bytes()
	if len(payload)%2 != 0 {
		payload = append(payload, 0)
	}

	b := &bitBuilder{}
	if withSync {
		b.push(24, 0xF8726F)
		b.push(8, 0xBB)
		b.push(4, 0) // 16 bps
		b.push(4, 0)
		b.push(4, 0) // 48000 Hz
		b.push(4, 0)
		b.push(11, 0)
		b.push(5, 1) // stereo
		b.push(16, 0)
		b.push(16, 0)
		b.push(16, 0)
		b.push(1, 0)
		b.push(15, 0)
		b.push(4, 1) // one substream
		b.push(32, 0)
		b.push(32, 0)
		b.push(28, 0)
	}
	b.push(1, 0) // extraword_present
	b.push(1, 0) // nonrestart_substream
	b.push(1, 0) // checkdata_present
	b.push(1, 0)
	b.push(12, uint32(len(payload)/2))
	body := append(b.bytes(), payload...)

	frameBytes := len(body) + 4
	h := &bitBuilder{}
	h.push(4, 0)
	h.push(12, uint32(frameBytes/2))
	h.push(16, 0)
	return append(h.bytes(), body...)
}

// mlpAudioPacket wraps MLP frame bytes in an audio-packet header with
// codec id 0xA1 and no padding.
func mlpAudioPacket(frames []byte) []byte {
	hdr := pcmAudioPacketHeader(0xA1, 0)
	return append(hdr, frames...)
}

func buildMLPSector(frames []byte) []byte {
	pes := buildPESPacket(0xBD, mlpAudioPacket(frames))
	return padSector(append(packHeaderBytes(), pes...))
}

func TestTrackReaderMLPStereo(t *testing.T) {
	frames := append(mlpFrame(true, 9, 10), mlpFrame(false, 12, 6)...)
	src := &fakeSource{sectors: [][]byte{buildMLPSector(frames)}}

	tr := &disc.Track{FirstSector: 0, LastSector: 0, PTSLength: 90000 * 16 / 48000}
	r, err := Open(src, tr)
	require.NoError(t, err)
	require.Equal(t, CodecMLP, r.Codec())
	require.Equal(t, 16, r.BitsPerSample())
	require.Equal(t, 48000, r.SampleRate())
	require.Equal(t, 2, r.ChannelCount())
	require.EqualValues(t, 0x003, r.RIFFWaveChannelMask())

	buf := make([]int32, 16*2)
	n, err := r.Read(16, buf)
	require.NoError(t, err)
	require.Equal(t, 16, n)

	// First frame decodes to (1, 2), second to (4, -2), interleaved L/R.
	require.Equal(t, []int32{1, 2}, buf[:2])
	require.Equal(t, []int32{4, -2}, buf[16:18])

	n, err = r.Read(16, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// TestTrackReaderMLPProbeSkipsLeadingGarbage puts junk bytes ahead of
// the first major sync in the opening packet; the probe must discard
// them and still find the stream parameters.
func TestTrackReaderMLPProbeSkipsLeadingGarbage(t *testing.T) {
	junk := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	frames := append(junk, mlpFrame(true, 9, 10)...)
	src := &fakeSource{sectors: [][]byte{buildMLPSector(frames)}}

	tr := &disc.Track{FirstSector: 0, LastSector: 0, PTSLength: 90000 * 8 / 48000}
	r, err := Open(src, tr)
	require.NoError(t, err)
	require.Equal(t, CodecMLP, r.Codec())

	buf := make([]int32, 8*2)
	n, err := r.Read(8, buf)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []int32{1, 2}, buf[:2])
}

// TestTrackReaderMLPTerminatesAtLastSector: the track's last_sector
// falls mid-stream, and the reader must
// continue decoding up to and including the next major sync beyond it,
// then return end-of-stream -- even though more frames follow.
func TestTrackReaderMLPTerminatesAtLastSector(t *testing.T) {
	sector0 := buildMLPSector(append(mlpFrame(true, 9, 10), mlpFrame(false, 9, 10)...))
	// Past last_sector: one frame without sync (still emitted), one with
	// a fresh sync (the final frame emitted), one more that must never
	// be decoded.
	late := append(mlpFrame(false, 9, 10), mlpFrame(true, 9, 10)...)
	late = append(late, mlpFrame(false, 9, 10)...)
	sector1 := buildMLPSector(late)

	src := &fakeSource{sectors: [][]byte{sector0, sector1}}
	tr := &disc.Track{FirstSector: 0, LastSector: 0, PTSLength: 90000} // generous PTS bound
	r, err := Open(src, tr)
	require.NoError(t, err)

	var total int
	buf := make([]int32, 64*2)
	for {
		n, err := r.Read(64, buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	// Frames 1-2 from sector 0, plus the continuation frame and the
	// resync frame from sector 1: 4 blocks of 8 samples.
	require.Equal(t, 32, total)
}

// TestTrackReaderMLPSkipsForeignCodecPackets interleaves a PCM packet
// into an MLP stream; the MLP pump must skip it silently.
func TestTrackReaderMLPSkipsForeignCodecPackets(t *testing.T) {
	mlpHalf1 := mlpFrame(true, 9, 10)
	mlpHalf2 := mlpFrame(false, 12, 6)

	pcmPES := buildPESPacket(0xBD, append(pcmAudioPacketHeader(0xA0, 9), pcmStreamHeader(0, 0, 1)...))
	mlpPES2 := buildPESPacket(0xBD, mlpAudioPacket(mlpHalf2))

	sector0 := buildMLPSector(mlpHalf1)
	sector1 := padSector(append(append(packHeaderBytes(), pcmPES...), mlpPES2...))

	src := &fakeSource{sectors: [][]byte{sector0, sector1}}
	tr := &disc.Track{FirstSector: 0, LastSector: 1, PTSLength: 90000 * 16 / 48000}
	r, err := Open(src, tr)
	require.NoError(t, err)

	buf := make([]int32, 16*2)
	n, err := r.Read(16, buf)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, []int32{4, -2}, buf[16:18])
}
