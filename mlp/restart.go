package mlp

import (
	"dvda/bitio"
)

const restartHeaderSync = 0x18F5

// decodeRestartHeader parses a substream's restart header, which resets the substream's channel range, noise generator and
// channel-assignment state. It returns false (no error) when the header's
// fixed fields don't validate -- that is a malformed frame, not an I/O
// failure.
func decodeRestartHeader(r *bitio.Reader) (RestartHeader, bool, error) {
	headerSync, err := r.ReadBits(13)
	if err != nil {
		return RestartHeader{}, false, err
	}
	noiseType, err := r.ReadBits(1)
	if err != nil {
		return RestartHeader{}, false, err
	}
	if err := r.SkipBits(16); err != nil { // output_timestamp
		return RestartHeader{}, false, err
	}
	minChannel, err := r.ReadBits(4)
	if err != nil {
		return RestartHeader{}, false, err
	}
	maxChannel, err := r.ReadBits(4)
	if err != nil {
		return RestartHeader{}, false, err
	}
	maxMatrixChannel, err := r.ReadBits(4)
	if err != nil {
		return RestartHeader{}, false, err
	}
	noiseShift, err := r.ReadBits(4)
	if err != nil {
		return RestartHeader{}, false, err
	}
	noiseGenSeed, err := r.ReadBits(23)
	if err != nil {
		return RestartHeader{}, false, err
	}
	if err := r.SkipBits(19); err != nil { // unknown1
		return RestartHeader{}, false, err
	}
	if err := r.SkipBits(1); err != nil { // check_data_present
		return RestartHeader{}, false, err
	}
	if err := r.SkipBits(8); err != nil { // lossless_check
		return RestartHeader{}, false, err
	}
	if err := r.SkipBits(16); err != nil { // unknown2
		return RestartHeader{}, false, err
	}

	if headerSync != restartHeaderSync || noiseType != 0 {
		return RestartHeader{}, false, nil
	}
	if maxChannel < minChannel || maxMatrixChannel < maxChannel {
		return RestartHeader{}, false, nil
	}

	hdr := RestartHeader{
		MinChannel:       int(minChannel),
		MaxChannel:       int(maxChannel),
		MaxMatrixChannel: int(maxMatrixChannel),
		NoiseShift:       int(noiseShift),
		NoiseGenSeed:     noiseGenSeed,
	}

	for c := 0; c <= hdr.MaxMatrixChannel; c++ {
		assign, err := r.ReadBits(6)
		if err != nil {
			return RestartHeader{}, false, err
		}
		if int(assign) > hdr.MaxMatrixChannel {
			return RestartHeader{}, false, nil
		}
		hdr.ChannelAssignment[c] = int(assign)
	}

	if err := r.SkipBits(8); err != nil { // checksum, unverified
		return RestartHeader{}, false, err
	}

	return hdr, true, nil
}
