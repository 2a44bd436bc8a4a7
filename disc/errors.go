package disc

import "github.com/pkg/errors"

// Error taxonomy for the read path. A failure that falls into one of
// these categories wraps the matching sentinel with errors.Wrap/Wrapf so
// errors.Is still matches through the chain while the message keeps the
// call-site context. Argument checks (such as an out-of-range titleset
// passed to aob.Open) and plain I/O errors are returned without one.
var (
	// ErrNotFound indicates a required file (AMG, ATS IFO, AOB, MKB) is
	// absent.
	ErrNotFound = errors.New("dvda: not found")

	// ErrMalformedContainer indicates a magic mismatch, bad pack header,
	// bad packet start code, or a short sector.
	ErrMalformedContainer = errors.New("dvda: malformed container")

	// ErrUnsupportedStream indicates an unknown codec id, unknown
	// bps/rate code, or channel_assignment > 20.
	ErrUnsupportedStream = errors.New("dvda: unsupported stream")

	// ErrMalformedCodecFrame indicates an MLP major sync was never
	// found, a substream parity/CRC check failed structurally (as
	// opposed to simply being discarded per-substream), a filter-order
	// sum exceeded 8, or inconsistent non-zero shifts were seen.
	ErrMalformedCodecFrame = errors.New("dvda: malformed codec frame")
)
