package mlp

import (
	"github.com/pkg/errors"

	"dvda/bitio"
	"dvda/disc"
)

// substreamInfo is one substream_info block: it tells the frame reader
// where each substream's data ends within the frame.
type substreamInfo struct {
	extraWordPresent bool
	checkdataPresent bool
	substreamEnd     int // byte offset from the start of substream data
}

// readSubstreamInfo parses one substream_info block. extraWordPresent set
// means the frame carries an extra word this decoder doesn't understand;
// the caller rejects such a frame as an unsupported stream.
func readSubstreamInfo(r *bitio.Reader) (substreamInfo, error) {
	extraWord, err := r.ReadBits(1)
	if err != nil {
		return substreamInfo{}, err
	}
	_, err = r.ReadBits(1) // nonrestart_substream, unused by this decoder
	if err != nil {
		return substreamInfo{}, err
	}
	checkdataPresent, err := r.ReadBits(1)
	if err != nil {
		return substreamInfo{}, err
	}
	if err := r.SkipBits(1); err != nil {
		return substreamInfo{}, err
	}
	substreamEnd, err := r.ReadBits(12)
	if err != nil {
		return substreamInfo{}, err
	}

	return substreamInfo{
		extraWordPresent: extraWord != 0,
		checkdataPresent: checkdataPresent != 0,
		substreamEnd:     int(substreamEnd) * 2,
	}, nil
}

// errCheckdata marks a substream whose trailing parity or CRC-8 did not
// validate. The frame decoder skips that frame's contribution and
// retries from the next frame rather than ending the stream.
var errCheckdata = errors.Wrap(disc.ErrMalformedCodecFrame, "mlp: substream checkdata mismatch")

// extractSubstream carves substreamLength bytes of substream data out of
// the frame reader starting at its current (byte-aligned) position,
// validating the trailing parity/CRC-8 bytes when checkdataPresent is
// set.
func extractSubstream(r *bitio.Reader, substreamLength int, checkdataPresent bool) (*bitio.Reader, error) {
	if !checkdataPresent {
		return r.SubReader(substreamLength)
	}

	if substreamLength < 2 {
		return nil, errors.New("mlp: substream too short for checkdata")
	}

	sub, err := r.SubReader(substreamLength - 2)
	if err != nil {
		return nil, err
	}

	body, err := sub.Rest()
	if err != nil {
		return nil, err
	}
	cd := newCheckdata()
	for _, b := range body {
		cd.update(b)
	}
	sub.Reset(0)

	parity, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	if byte(parity)^cd.parity != parityMask {
		return nil, errCheckdata
	}

	crc, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	if byte(crc) != cd.crc {
		return nil, errCheckdata
	}

	return sub, nil
}
