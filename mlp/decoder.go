package mlp

import (
	"github.com/pkg/errors"

	"dvda/bitio"
	"dvda/chanmap"
	"dvda/disc"
)

// Decoder is the L4b MLP decoder. It queues raw MLP payload bytes
// across packets and emits complete frames as soon as enough bytes
// have arrived, so a frame may span an MPEG-PS packet boundary.
type Decoder struct {
	queue *bitio.Queue

	haveMajorSync  bool
	majorSync      StreamParameters
	substreamCount int

	// framesWithSync counts frames decoded so far that carried a major
	// sync (as opposed to relying on previously latched parameters).
	framesWithSync int

	// terminating/finished implement the Terminating/Done states of the
	// track-stream state machine: once TerminateAtNextMajorSync
	// has been called, decoding continues only through the next frame
	// that carries a major sync, after which the decoder is finished.
	terminating bool
	finished    bool

	substreams [MaxSubstreams]substream
}

// NewDecoder returns an MLP decoder with no stream parameters latched
// yet; they are learned from the first frame's major sync.
func NewDecoder() *Decoder {
	return &Decoder{queue: bitio.NewQueue()}
}

// StreamParameters returns the stream parameters latched from the first
// major sync seen, and false if none has been seen yet.
func (d *Decoder) StreamParameters() (StreamParameters, bool) {
	return d.majorSync, d.haveMajorSync
}

// FramesWithMajorSync returns the number of decoded frames so far that
// carried a major sync.
func (d *Decoder) FramesWithMajorSync() int {
	return d.framesWithSync
}

// TerminateAtNextMajorSync puts the decoder into the Terminating
// state: it decodes through the next frame carrying a major sync, then
// reports Finished. The track reader calls this once the current
// sector passes the track's last_sector, so output is bounded to the
// track's sector range without cutting mid-frame.
func (d *Decoder) TerminateAtNextMajorSync() {
	d.terminating = true
}

// Finished reports whether the decoder has reached its Done state: no
// further frames will be decoded.
func (d *Decoder) Finished() bool {
	return d.finished
}

// frameHeaderSize is the fixed prefix of every MLP frame: 4-bit check
// nibble, 12-bit total_frame_size, 16-bit checksum.
const frameHeaderSize = 4

// alignToMajorSync discards queued bytes until the queue begins at an
// MLP frame whose body opens with a major sync; everything ahead of
// that point is noise to this decoder. The sync pattern sits
// frameHeaderSize bytes past the frame's start. It returns false when no
// sync is queued yet, leaving a tail short enough to never miss a sync
// split across packets.
func (d *Decoder) alignToMajorSync() bool {
	buf := d.queue.PeekAll()
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == 0xF8 && buf[i+1] == 0x72 && buf[i+2] == 0x6F && buf[i+3] == majorStreamTyp {
			if i >= frameHeaderSize {
				d.queue.Discard(i - frameHeaderSize)
			}
			return true
		}
	}
	if keep := len(buf) - (frameHeaderSize + 3); keep > 0 {
		d.queue.Discard(keep)
	}
	return false
}

// DecodePacket enqueues an MLP audio packet's payload and decodes as
// many complete frames as are now available, appending reordered
// RIFF-WAVE channel data to channels. It returns the number of PCM
// frames produced.
func (d *Decoder) DecodePacket(payload []byte, channels [][]int32) (int, error) {
	if d.finished {
		return 0, nil
	}
	d.queue.Push(payload)

	if !d.haveMajorSync && !d.alignToMajorSync() {
		return 0, nil
	}

	total := 0
	for {
		header, ok := d.queue.Peek(frameHeaderSize)
		if !ok {
			return total, nil
		}
		hr := bitio.NewReader(header)
		if err := hr.SkipBits(4); err != nil {
			return total, err
		}
		totalFrameSize, err := hr.ReadBits(12)
		if err != nil {
			return total, err
		}
		frameBytes := int(totalFrameSize) * 2
		if frameBytes < 4 {
			return total, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: frame size too small")
		}

		full, ok := d.queue.Peek(frameBytes)
		if !ok {
			return total, nil // wait for the rest of the frame
		}
		d.queue.Discard(frameBytes)

		syncBefore := d.framesWithSync
		n, err := d.decodeFrame(full[frameHeaderSize:], channels)
		if err != nil {
			return total, err
		}
		total += n

		if d.terminating && d.framesWithSync != syncBefore {
			// Done: the frame just decoded carried the first major sync
			// past last_sector; its samples are the last ones emitted.
			d.finished = true
			d.queue.Discard(d.queue.Len())
			return total, nil
		}
	}
}

// decodeFrame decodes one MLP frame's body (everything past the 4-byte
// total_frame_size header) into channels.
func (d *Decoder) decodeFrame(body []byte, channels [][]int32) (int, error) {
	r := bitio.NewReader(body)

	params, substreamCount, ok, err := readMajorSync(r)
	if err != nil {
		return 0, err
	}
	if ok {
		if d.haveMajorSync {
			if !sameParameters(d.majorSync, params) {
				return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: major sync parameters changed mid-stream")
			}
		} else {
			d.majorSync = params
			d.haveMajorSync = true
		}
		d.framesWithSync++
		d.substreamCount = substreamCount
	}
	if !d.haveMajorSync {
		return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: no major sync seen yet")
	}

	infos := make([]substreamInfo, d.substreamCount)
	for s := 0; s < d.substreamCount; s++ {
		info, err := readSubstreamInfo(r)
		if err != nil {
			return 0, err
		}
		if info.extraWordPresent {
			return 0, errors.Wrap(disc.ErrUnsupportedStream, "mlp: extraword present")
		}
		infos[s] = info
	}

	assignment, ok := chanmap.Lookup(d.majorSync.ChannelAssignment)
	if !ok {
		return 0, errors.Wrap(disc.ErrUnsupportedStream, "mlp: channel_assignment out of range")
	}

	framelist := make([][]int32, MaxChannels)

	prevEnd := 0
	var pcmFrames [MaxSubstreams]int
	for s := 0; s < d.substreamCount; s++ {
		length := infos[s].substreamEnd - prevEnd
		prevEnd = infos[s].substreamEnd

		sub := &d.substreams[s]
		for m := range sub.params.Matrix {
			sub.params.Matrix[m].BypassedLSB = nil
		}

		substreamReader, err := extractSubstream(r, length, infos[s].checkdataPresent)
		if err != nil {
			if errors.Is(err, errCheckdata) {
				// Skip this frame's contribution and retry from the
				// next frame.
				return 0, nil
			}
			return 0, err
		}

		n, err := d.decodeSubstream(sub, substreamReader, framelist)
		if err != nil {
			return 0, err
		}
		pcmFrames[s] = n
	}

	if pcmFrames[0] == 0 {
		return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: substream 0 produced no frames")
	}

	// Rematrixing uses the last substream's parameters: with two
	// substreams, substream 1 drives the output stage.
	active := &d.substreams[d.substreamCount-1]
	for c := 0; c <= active.header.MaxMatrixChannel; c++ {
		if len(framelist[c]) != len(framelist[0]) {
			return 0, errors.Wrapf(disc.ErrMalformedCodecFrame, "mlp: channel %d produced %d samples, channel 0 produced %d", c, len(framelist[c]), len(framelist[0]))
		}
	}
	rematrixChannels(framelist, active.header.MaxMatrixChannel, active.header.NoiseShift, &active.header.NoiseGenSeed, active.params.Matrix, active.params.QuantStepSize)
	applyOutputShift(framelist, active.header.MaxMatrixChannel, active.params.OutputShift)

	for c := 0; c < assignment.Channels; c++ {
		out := assignment.Perm[c]
		channels[out] = append(channels[out], framelist[c]...)
	}

	return pcmFrames[0], nil
}

// decodeSubstream decodes blocks from one substream until its
// "substream end" flag is set, appending each block's filtered channel
// data to framelist.
func (d *Decoder) decodeSubstream(sub *substream, r *bitio.Reader, framelist [][]int32) (int, error) {
	total := 0
	for {
		n, err := decodeBlock(sub, r, framelist)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n

		end, err := readFlag(r)
		if err != nil {
			return total, err
		}
		if end {
			return total, nil
		}
	}
}

// decodeBlock decodes one block within a substream: optional restart
// header and decoding parameters, then residual
// decode and filtering.
func decodeBlock(sub *substream, r *bitio.Reader, framelist [][]int32) (int, error) {
	paramsPresent, err := readFlag(r)
	if err != nil {
		return 0, err
	}

	restartPresent := false
	if paramsPresent {
		restartPresent, err = readFlag(r)
		if err != nil {
			return 0, err
		}
		if restartPresent {
			hdr, ok, err := decodeRestartHeader(r)
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: invalid restart header")
			}
			sub.header = hdr
			sub.haveHeader = true
		}
		if !sub.haveHeader {
			return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: decoding parameters before any restart header")
		}

		newParams, ok, err := decodeDecodingParameters(r, restartPresent, sub.header.MinChannel, sub.header.MaxChannel, sub.header.MaxMatrixChannel, sub.params)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: invalid decoding parameters")
		}
		sub.params = newParams
		sub.haveParams = true
	}

	if !sub.haveParams {
		return 0, errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: residual data before any decoding parameters")
	}

	residuals, matrixOut, err := decodeResidualData(r, sub.header.MinChannel, sub.header.MaxChannel, sub.params.BlockSize, sub.params.Matrix, sub.params.QuantStepSize, sub.params.Channel)
	if err != nil {
		return 0, err
	}
	sub.params.Matrix = matrixOut

	for c := sub.header.MinChannel; c <= sub.header.MaxChannel; c++ {
		filtered, err := filterChannel(residuals[c], &sub.params.Channel[c].FIR, &sub.params.Channel[c].IIR, sub.params.QuantStepSize[c])
		if err != nil {
			return 0, errors.Wrap(disc.ErrMalformedCodecFrame, err.Error())
		}
		framelist[c] = append(framelist[c], filtered...)
	}

	return sub.params.BlockSize, nil
}
