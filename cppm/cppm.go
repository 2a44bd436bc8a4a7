// Package cppm defines the external collaborator hook for Content
// Protection for Pre-recorded Media descrambling. Real CPPM
// descrambling requires a licensed device key and is out of scope for
// this repository; it is modeled purely as an interface so a real
// implementation can be plugged into an aob.SectorReader without the
// sector reader needing to know anything about CPPM internals.
package cppm

// Descrambler transforms a single 2048-byte sector in place. Init is
// given the device path and the parsed contents of AUDIO_TS/DVDAUDIO.MKB;
// it returns false if the device/MKB pair could not be used to set up
// descrambling, in which case the caller must treat descrambling as
// disabled rather than fail the whole open.
type Descrambler interface {
	Init(devicePath string, mkb []byte) bool
	DescrambleSector(sector []byte)
}

// Disabled is a Descrambler that never activates, used when no device
// path was supplied or AUDIO_TS/DVDAUDIO.MKB is absent.
type Disabled struct{}

func (Disabled) Init(string, []byte) bool { return false }
func (Disabled) DescrambleSector([]byte)  {}

var _ Descrambler = Disabled{}
