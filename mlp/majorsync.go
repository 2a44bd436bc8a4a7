package mlp

import (
	"dvda/bitio"
)

const (
	majorSyncWord  = 0xF8726F
	majorStreamTyp = 0xBB
)

// readMajorSync attempts to parse a major sync header at the reader's
// current position: sync_words, stream_type, stream parameters, VBR
// flag, peak bitrate, substream_count. It leaves the
// reader positioned just past the major sync on success, and rewinds to
// the original position if no valid major sync is present there -- a
// missing major sync is not an error, frames after the first one may
// omit it entirely.
func readMajorSync(r *bitio.Reader) (StreamParameters, int, bool, error) {
	mark := r.Mark()

	syncWords, err := r.ReadBits(24)
	if err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	streamType, err := r.ReadBits(8)
	if err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	if syncWords != majorSyncWord || streamType != majorStreamTyp {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}

	group0bps, _ := r.ReadBits(4)
	group1bps, _ := r.ReadBits(4)
	group0rate, _ := r.ReadBits(4)
	group1rate, _ := r.ReadBits(4)
	if err := r.SkipBits(11); err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	chanAssign, err := r.ReadBits(5)
	if err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	if err := r.SkipBits(48); err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	if err := r.SkipBits(1); err != nil { // is_VBR
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	if err := r.SkipBits(15); err != nil { // peak_bitrate
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	substreamCount, err := r.ReadBits(4)
	if err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}
	if err := r.SkipBits(92); err != nil {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}

	if substreamCount != 1 && substreamCount != 2 {
		r.Reset(mark)
		return StreamParameters{}, 0, false, nil
	}

	params := StreamParameters{
		Group0BPS:         bpsTable[group0bps],
		Group1BPS:         bpsTable[group1bps],
		Group0Rate:        rateTable[group0rate],
		Group1Rate:        rateTable[group1rate],
		ChannelAssignment: int(chanAssign),
	}
	return params, int(substreamCount), true, nil
}

// sameParameters reports whether two major syncs' stream parameters
// agree, used to reject a frame whose major sync contradicts the one
// latched at stream start.
func sameParameters(a, b StreamParameters) bool {
	return a == b
}
