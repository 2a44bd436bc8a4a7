package track

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"dvda/disc"
)

// bitBuilder is a tiny MSB-first bit assembler shared by the synthetic
// fixtures below, mirroring pcm.headerBits and mpegps.packHeaderBits.
type bitBuilder struct {
	bits []bool
}

func (b *bitBuilder) push(n int, v uint32) {
	for i := n - 1; i >= 0; i-- {
		b.bits = append(b.bits, (v>>uint(i))&1 == 1)
	}
}

func (b *bitBuilder) bytes() []byte {
	bits := b.bits
	for len(bits)%8 != 0 {
		bits = append(bits, false)
	}
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i < len(bits); i += 8 {
		var v byte
		for j := 0; j < 8; j++ {
			v <<= 1
			if bits[i+j] {
				v |= 1
			}
		}
		out = append(out, v)
	}
	return out
}

// packHeaderBytes builds a minimal, fully valid MPEG-2 pack header (sync
// plus the six marker bits, zero stuffing).
func packHeaderBytes() []byte {
	b := &bitBuilder{}
	b.push(2, 0b01)
	b.push(3, 0)
	b.push(1, 1)
	b.push(15, 0)
	b.push(1, 1)
	b.push(15, 0)
	b.push(1, 1)
	b.push(9, 0)
	b.push(1, 1)
	b.push(22, 0)
	b.push(2, 0b11)
	b.push(5, 0)
	b.push(3, 0)
	out := []byte{0x00, 0x00, 0x01, 0xBA}
	return append(out, b.bytes()...)
}

func buildPESPacket(streamID byte, payload []byte) []byte {
	out := []byte{0x00, 0x00, 0x01, streamID, byte(len(payload) >> 8), byte(len(payload))}
	return append(out, payload...)
}

// pcmAudioPacketHeader builds the 7-byte audio-packet header for
// pad_1_size=0 and the given pad_2_size.
func pcmAudioPacketHeader(codecID byte, pad2Size int) []byte {
	b := &bitBuilder{}
	b.push(16, 0) // pad_1_size_marker
	b.push(8, 0)  // pad_1_size
	b.push(8, uint32(codecID))
	b.push(16, 0)
	b.push(8, uint32(pad2Size))
	return b.bytes()
}

// pcmStreamHeader builds the 9-byte PCM stream-parameter header.
func pcmStreamHeader(group0bps, group0rate, chanAssign uint32) []byte {
	b := &bitBuilder{}
	b.push(16, 0) // first_audio_frame
	b.push(8, 0)
	b.push(4, group0bps)
	b.push(4, 0) // group_1_bps
	b.push(4, group0rate)
	b.push(4, 0) // group_1_rate
	b.push(8, 0)
	b.push(5, chanAssign)
	b.push(8, 0)
	b.push(8, 0) // CRC
	return b.bytes()
}

func padSector(b []byte) []byte {
	if len(b) > 2048 {
		panic("track test: sector overflow")
	}
	sector := make([]byte, 2048)
	copy(sector, b)
	return sector
}

// fakeSource is an in-memory track.SectorSource over a fixed slice of
// 2048-byte sectors.
type fakeSource struct {
	sectors [][]byte
	next    int64
}

func (f *fakeSource) Read(buf []byte) error {
	if int(f.next) >= len(f.sectors) {
		return io.EOF
	}
	copy(buf, f.sectors[f.next])
	f.next++
	return nil
}

func (f *fakeSource) Tell() int64 { return f.next }

func (f *fakeSource) Seek(sector int64) error {
	if sector < 0 || int(sector) > len(f.sectors) {
		return io.ErrUnexpectedEOF
	}
	f.next = sector
	return nil
}

// buildPCMSector assembles one sector containing a pack header and a
// single audio PES packet carrying a PCM stream header plus raw chunk
// payload.
func buildPCMSector(group0bps, group0rate, chanAssign uint32, pcmPayload []byte) []byte {
	audioHeader := pcmAudioPacketHeader(0xA0, 9)
	streamHeader := pcmStreamHeader(group0bps, group0rate, chanAssign)
	payload := append(append(audioHeader, streamHeader...), pcmPayload...)
	pes := buildPESPacket(0xBD, payload)
	return padSector(append(packHeaderBytes(), pes...))
}

// TestTrackReaderPCMStereoMinimal decodes the smallest possible stereo
// track, one 8-byte chunk: [0x00 0x01 0x00 0x02 ...] unswaps to a first
// frame of left=1, right=2.
func TestTrackReaderPCMStereoMinimal(t *testing.T) {
	sector := buildPCMSector(0, 0, 1, []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04})
	src := &fakeSource{sectors: [][]byte{sector}}

	tr := &disc.Track{FirstSector: 0, LastSector: 0, PTSLength: 90000 * 2 / 48000}
	r, err := Open(src, tr)
	require.NoError(t, err)
	require.Equal(t, CodecPCM, r.Codec())
	require.Equal(t, 16, r.BitsPerSample())
	require.Equal(t, 48000, r.SampleRate())
	require.Equal(t, 2, r.ChannelCount())

	buf := make([]int32, 2*2)
	n, err := r.Read(2, buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []int32{1, 2}, buf[:2])

	n, err = r.Read(2, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// TestTrackReaderChunkSizeInvariance reads the same two-frame stream in
// chunks of 1 and of 4 and checks both yield the same sample sequence
// regardless of read granularity.
func TestTrackReaderChunkSizeInvariance(t *testing.T) {
	build := func() *Reader {
		sector := buildPCMSector(0, 0, 1, []byte{
			0x00, 0x01, 0x00, 0x02,
			0x00, 0x03, 0x00, 0x04,
		})
		src := &fakeSource{sectors: [][]byte{sector}}
		tr := &disc.Track{FirstSector: 0, LastSector: 0, PTSLength: 90000 * 4 / 48000}
		r, err := Open(src, tr)
		require.NoError(t, err)
		return r
	}

	readAll := func(r *Reader, chunk int) []int32 {
		var out []int32
		buf := make([]int32, chunk*2)
		for {
			n, err := r.Read(chunk, buf)
			require.NoError(t, err)
			if n == 0 {
				break
			}
			out = append(out, buf[:n*2]...)
		}
		return out
	}

	r1 := build()
	seq1 := readAll(r1, 1)
	r2 := build()
	seq2 := readAll(r2, 4)

	require.Equal(t, seq1, seq2)
	require.Equal(t, []int32{1, 2, 3, 4}, seq1)
}

// TestTrackReaderPCMSpansSectors feeds a PCM stream across two sectors;
// the emitted sequence must be the concatenation of both sectors' audio
// contents.
func TestTrackReaderPCMSpansSectors(t *testing.T) {
	sector0 := buildPCMSector(0, 0, 1, []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04})
	sector1 := buildPCMSector(0, 0, 1, []byte{0x00, 0x05, 0x00, 0x06, 0x00, 0x07, 0x00, 0x08})
	src := &fakeSource{sectors: [][]byte{sector0, sector1}}

	tr := &disc.Track{FirstSector: 0, LastSector: 1, PTSLength: 90000 * 4 / 48000}
	r, err := Open(src, tr)
	require.NoError(t, err)

	buf := make([]int32, 4*2)
	n, err := r.Read(4, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, buf)
}

// TestTrackReaderReopenDeterminism re-opens the same track with a fresh
// reader and requires an identical sample sequence.
func TestTrackReaderReopenDeterminism(t *testing.T) {
	sectors := [][]byte{
		buildPCMSector(0, 0, 1, []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}),
		buildPCMSector(0, 0, 1, []byte{0x00, 0x05, 0x00, 0x06, 0x00, 0x07, 0x00, 0x08}),
	}

	readAll := func() []int32 {
		src := &fakeSource{sectors: sectors}
		tr := &disc.Track{FirstSector: 0, LastSector: 1, PTSLength: 90000 * 6 / 48000}
		r, err := Open(src, tr)
		require.NoError(t, err)
		var out []int32
		buf := make([]int32, 3*2)
		for {
			n, err := r.Read(3, buf)
			require.NoError(t, err)
			if n == 0 {
				break
			}
			out = append(out, buf[:n*2]...)
		}
		return out
	}

	first := readAll()
	second := readAll()
	require.Equal(t, first, second)
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, first)
}

// TestTrackReaderPCMStopsOnParameterChange ends the stream when a later
// packet's stream parameters disagree with the probed ones.
func TestTrackReaderPCMStopsOnParameterChange(t *testing.T) {
	sector0 := buildPCMSector(0, 0, 1, []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04})
	sector1 := buildPCMSector(2, 2, 20, make([]byte, 36))
	src := &fakeSource{sectors: [][]byte{sector0, sector1}}

	tr := &disc.Track{FirstSector: 0, LastSector: 1, PTSLength: 90000}
	r, err := Open(src, tr)
	require.NoError(t, err)

	buf := make([]int32, 16*2)
	n, err := r.Read(16, buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []int32{1, 2}, buf[:2])

	n, err = r.Read(16, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestTrackReaderUnknownCodecFails(t *testing.T) {
	audioHeader := pcmAudioPacketHeader(0xFF, 0)
	pes := buildPESPacket(0xBD, audioHeader)
	sector := padSector(append(packHeaderBytes(), pes...))
	src := &fakeSource{sectors: [][]byte{sector}}

	tr := &disc.Track{FirstSector: 0, LastSector: 0, PTSLength: 1}
	_, err := Open(src, tr)
	require.Error(t, err)
}
