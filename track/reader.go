// Package track implements the L3 track reader: given an
// open sector reader positioned at a track's first sector, it probes the
// leading audio packet to determine codec and stream parameters,
// instantiates the matching codec decoder, and streams PCM frames
// through a per-channel buffer, interleaved in RIFF-WAVE channel order.
package track

import (
	"io"

	"github.com/pkg/errors"

	"dvda/bitio"
	"dvda/disc"
	"dvda/mlp"
	"dvda/mpegps"
	"dvda/pcm"
)

// Codec identifies which codec a track reader has probed and opened.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecPCM
	CodecMLP
)

func (c Codec) String() string {
	switch c {
	case CodecPCM:
		return "PCM"
	case CodecMLP:
		return "MLP"
	default:
		return "unknown"
	}
}

const (
	codecIDPCM = 0xA0
	codecIDMLP = 0xA1
)

// pcmHeaderBytes is the fixed size of the DVD-Audio PCM stream-parameter
// header that pcm.ParseParameters consumes: 16+8+4+4+4+4+8+
// 5+8+8 bits = 69 bits, which occupy 9 whole bytes.
const pcmHeaderBytes = 9

// SectorSource is the L1 collaborator, matching aob.SectorReader.
type SectorSource interface {
	Read(buf []byte) error
	Tell() int64
	Seek(sector int64) error
}

// Reader is the L3 track reader: it owns the L1/L2 state below it and a
// tagged-union codec decoder, all of which it releases on close.
type Reader struct {
	demux      *mpegps.Demuxer
	src        SectorSource
	lastSector int64

	codec       Codec
	bps         int
	sampleRate  int
	channels    int
	channelMask uint32

	pcmDecoder *pcm.Decoder
	mlpDecoder *mlp.Decoder

	buffers [][]int32
	done    bool
	remain  int64 // remaining_pcm_frames bound; -1 = unbounded
}

// Open seeks src to t.FirstSector, probes the leading audio packet, and
// returns a Reader with its codec decoder instantiated. src must already
// be the sector reader for the title set containing t.
func Open(src SectorSource, t *disc.Track) (*Reader, error) {
	if err := src.Seek(int64(t.FirstSector)); err != nil {
		return nil, errors.Wrap(err, "track: seeking to first sector")
	}

	demux := mpegps.New(src, 2048)

	_, payload, err := demux.NextAudioPacket()
	if err != nil {
		return nil, errors.Wrap(err, "track: reading first audio packet")
	}

	r := bitio.NewReader(payload)
	codecID, padBytes, err := readAudioPacketHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, "track: parsing audio-packet header")
	}

	tr := &Reader{
		demux:      demux,
		src:        src,
		lastSector: int64(t.LastSector),
	}

	switch codecID {
	case codecIDPCM:
		if err := tr.openPCM(r, padBytes, t); err != nil {
			return nil, err
		}
	case codecIDMLP:
		if err := tr.openMLP(r, padBytes, t); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(disc.ErrUnsupportedStream, "track: unknown codec id 0x%02X", codecID)
	}

	return tr, nil
}

// readAudioPacketHeader parses the audio-packet header that follows the
// 48-bit PES header: 16-bit marker, 8-bit pad_1_size,
// pad_1_size skipped bytes, 8-bit codec_id, 16-bit skipped, 8-bit
// pad_2_size. It returns the codec id and pad_2_size.
func readAudioPacketHeader(r *bitio.Reader) (codecID byte, pad2Size int, err error) {
	if err = r.SkipBits(16); err != nil { // pad_1_size_marker
		return
	}
	pad1, err := r.ReadBits(8)
	if err != nil {
		return
	}
	if err = r.SkipBits(int(pad1) * 8); err != nil {
		return
	}
	id, err := r.ReadBits(8)
	if err != nil {
		return
	}
	if err = r.SkipBits(16); err != nil {
		return
	}
	pad2, err := r.ReadBits(8)
	if err != nil {
		return
	}
	return byte(id), int(pad2), nil
}

// openPCM parses the PCM stream-parameter header immediately following
// pad_2_size, skips the remainder of pad-2, and decodes the first block
// of PCM frames.
func (tr *Reader) openPCM(r *bitio.Reader, pad2Size int, t *disc.Track) error {
	params, err := pcm.ParseParameters(r)
	if err != nil {
		return errors.Wrap(disc.ErrUnsupportedStream, err.Error())
	}
	// ParseParameters's field widths don't sum to a byte multiple; the
	// header occupies 9 whole bytes regardless, so round up to that
	// byte boundary before skipping the remainder.
	r.ByteAlign()
	if err := r.SkipBits((pad2Size - pcmHeaderBytes) * 8); err != nil {
		return errors.Wrap(disc.ErrMalformedContainer, "track: skipping remainder of PCM pad_2")
	}

	dec, err := pcm.NewDecoder(params.BitsPerSample, params.Channels)
	if err != nil {
		return errors.Wrap(disc.ErrUnsupportedStream, err.Error())
	}

	tr.codec = CodecPCM
	tr.bps = params.BitsPerSample
	tr.sampleRate = params.SampleRate
	tr.channels = params.Channels
	tr.channelMask = params.ChannelMask
	tr.pcmDecoder = dec
	tr.buffers = make([][]int32, params.Channels)
	tr.remain = ptsFrameBound(t.PTSLength, params.SampleRate)

	rest, err := r.Rest()
	if err != nil {
		return errors.Wrap(disc.ErrMalformedContainer, "track: reading PCM packet payload")
	}
	if _, err := dec.DecodePacket(rest, tr.buffers); err != nil {
		return errors.Wrap(disc.ErrMalformedContainer, err.Error())
	}
	return nil
}

// openMLP skips pad_2_size bytes and scans forward through the packet
// queue for the first major sync.
func (tr *Reader) openMLP(r *bitio.Reader, pad2Size int, t *disc.Track) error {
	if err := r.SkipBits(pad2Size * 8); err != nil {
		return errors.Wrap(disc.ErrMalformedContainer, "track: skipping MLP pad_2")
	}
	rest, err := r.Rest()
	if err != nil {
		return errors.Wrap(disc.ErrMalformedContainer, "track: reading MLP packet payload")
	}

	dec := mlp.NewDecoder()
	tr.mlpDecoder = dec
	tr.codec = CodecMLP
	tr.buffers = nil // sized once channel count is known, below

	payload := rest
	for {
		tmp := make([][]int32, mlp.MaxChannels)
		n, decErr := dec.DecodePacket(payload, tmp)
		if decErr != nil {
			return errors.Wrap(disc.ErrMalformedCodecFrame, decErr.Error())
		}
		params, ok := dec.StreamParameters()
		if ok {
			assignment, layoutOK := params.ChannelLayout()
			if !layoutOK {
				return errors.Wrap(disc.ErrUnsupportedStream, "track: MLP channel_assignment out of range")
			}
			tr.bps = params.Group0BPS
			tr.sampleRate = params.Group0Rate
			tr.channels = assignment.Channels
			tr.channelMask = assignment.Mask
			tr.buffers = make([][]int32, assignment.Channels)
			for c := 0; c < assignment.Channels; c++ {
				tr.buffers[c] = append(tr.buffers[c], tmp[c][:min(n, len(tmp[c]))]...)
			}
			tr.remain = ptsFrameBound(t.PTSLength, params.Group0Rate)
			return nil
		}

		// No major sync found yet in the bytes accumulated so far: pull
		// the next audio packet, skipping any that aren't MLP (codec
		// mixing can occur across packet types within a title) and
		// stripping its own
		// audio-packet header before feeding the payload to the queue.
		var nextPayload []byte
		for {
			_, pkt, nerr := tr.demux.NextAudioPacket()
			if nerr != nil {
				return errors.Wrap(disc.ErrMalformedCodecFrame, "track: no MLP major sync found before end of stream")
			}
			pr := bitio.NewReader(pkt)
			id, pad2, herr := readAudioPacketHeader(pr)
			if herr != nil {
				continue
			}
			if id != codecIDMLP {
				continue
			}
			if err := pr.SkipBits(pad2 * 8); err != nil {
				continue
			}
			rest, err := pr.Rest()
			if err != nil {
				continue
			}
			nextPayload = rest
			break
		}
		payload = nextPayload
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ptsFrameBound returns round(ptsLength * rate / 90000), the PTS-derived
// upper bound on emitted frame count. A zero rate (not yet known) yields
// an unbounded (-1) result.
func ptsFrameBound(ptsLength uint32, rate int) int64 {
	if rate == 0 {
		return -1
	}
	num := int64(ptsLength) * int64(rate)
	return (num + 45000) / 90000 // round-to-nearest
}

// Codec returns the codec this reader opened with.
func (tr *Reader) Codec() Codec { return tr.codec }

// BitsPerSample returns the stream's bits-per-sample.
func (tr *Reader) BitsPerSample() int { return tr.bps }

// SampleRate returns the stream's sample rate in Hz.
func (tr *Reader) SampleRate() int { return tr.sampleRate }

// ChannelCount returns the stream's channel count.
func (tr *Reader) ChannelCount() int { return tr.channels }

// RIFFWaveChannelMask returns the RIFF-WAVE speaker mask for this
// stream's channel_assignment.
func (tr *Reader) RIFFWaveChannelMask() uint32 { return tr.channelMask }

// Read fills out with up to n frames of interleaved, channel-major
// RIFF-WAVE-ordered PCM samples (len(out) must be n*ChannelCount()) and
// returns the number of frames actually produced. It returns 0 at
// end-of-stream.
func (tr *Reader) Read(n int, out []int32) (int, error) {
	if tr.done {
		return 0, nil
	}
	if len(out) < n*tr.channels {
		return 0, errors.Errorf("track: output buffer too small: need %d, got %d", n*tr.channels, len(out))
	}

	for tr.shortestBuffer() < n && !tr.done {
		if err := tr.pump(); err != nil {
			return 0, err
		}
	}

	produced := tr.shortestBuffer()
	if produced > n {
		produced = n
	}
	if tr.remain >= 0 && int64(produced) > tr.remain {
		produced = int(tr.remain)
	}
	if produced <= 0 {
		tr.done = true
		return 0, nil
	}

	for c := 0; c < tr.channels; c++ {
		for i := 0; i < produced; i++ {
			out[i*tr.channels+c] = tr.buffers[c][i]
		}
		tr.buffers[c] = tr.buffers[c][produced:]
	}
	if tr.remain >= 0 {
		tr.remain -= int64(produced)
		if tr.remain <= 0 {
			tr.done = true
		}
	}

	return produced, nil
}

func (tr *Reader) shortestBuffer() int {
	min := -1
	for _, b := range tr.buffers {
		if min == -1 || len(b) < min {
			min = len(b)
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// pump pulls the next audio packet from L2 and decodes it into the
// per-channel buffers, applying the per-codec pump rules.
func (tr *Reader) pump() error {
	for {
		sector, payload, err := tr.demux.NextAudioPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				tr.done = true
				return nil
			}
			return errors.Wrap(disc.ErrMalformedContainer, err.Error())
		}

		r := bitio.NewReader(payload)
		codecID, pad2, herr := readAudioPacketHeader(r)
		if herr != nil {
			// A malformed packet header ends the stream gracefully,
			// keeping whatever was already produced.
			tr.done = true
			return nil
		}

		switch tr.codec {
		case CodecPCM:
			if codecID != codecIDPCM {
				// codec mismatch ends the stream with whatever has
				// been produced.
				tr.done = true
				return nil
			}
			params, perr := pcm.ParseParameters(r)
			if perr != nil {
				tr.done = true
				return nil
			}
			if params.BitsPerSample != tr.bps || params.Channels != tr.channels || params.SampleRate != tr.sampleRate {
				// stream parameters mismatch: end the stream with
				// whatever has been produced.
				tr.done = true
				return nil
			}
			r.ByteAlign()
			if err := r.SkipBits((pad2 - pcmHeaderBytes) * 8); err != nil {
				tr.done = true
				return nil
			}
			rest, err := r.Rest()
			if err != nil {
				tr.done = true
				return nil
			}
			if _, err := tr.pcmDecoder.DecodePacket(rest, tr.buffers); err != nil {
				tr.done = true
				return nil
			}
			return nil

		case CodecMLP:
			if codecID != codecIDMLP {
				// packets of another codec are silently skipped: codec
				// mixing can occur across packet types within a title
				//.
				continue
			}
			if tr.lastSector >= 0 && sector > tr.lastSector {
				// Terminating: decode only up to (and including) the
				// next major sync, so the track's sector bound never
				// cuts mid-frame.
				tr.mlpDecoder.TerminateAtNextMajorSync()
			}
			if err := r.SkipBits(pad2 * 8); err != nil {
				tr.done = true
				return nil
			}
			rest, err := r.Rest()
			if err != nil {
				tr.done = true
				return nil
			}
			if _, err := tr.mlpDecoder.DecodePacket(rest, tr.buffers); err != nil {
				tr.done = true
				return nil
			}
			if tr.mlpDecoder.Finished() {
				tr.done = true
			}
			return nil

		default:
			return errors.New("track: pump called with no codec open")
		}
	}
}

// Close releases the track reader's resources: it drops the per-channel
// buffers and, when the SectorSource implements io.Closer (as
// aob.SectorReader does), closes it too.
func (tr *Reader) Close() error {
	tr.buffers = nil
	if c, ok := tr.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
