// Package chanmap holds the DVD-Audio channel-assignment table:
// for each of the 21 defined channel_assignment codes, the channel count,
// the RIFF-WAVE speaker mask, and the permutation from MLP/PCM channel
// order to RIFF-WAVE channel order. Both pcm and mlp key their output
// channel layout off this single table so the two codecs never disagree
// about what "channel assignment 9" means.
package chanmap

// RIFF-WAVE speaker position bits.
const (
	SpeakerFrontLeft   = 0x001 // fL
	SpeakerFrontRight  = 0x002 // fR
	SpeakerFrontCenter = 0x004 // fC
	SpeakerLFE         = 0x008 // LFE
	SpeakerBackLeft    = 0x010 // bL
	SpeakerBackRight   = 0x020 // bR
	SpeakerBackCenter  = 0x100 // bC
)

// Assignment describes one channel_assignment code's output layout.
type Assignment struct {
	Channels int
	Mask     uint32
	// Perm[i] gives the RIFF-WAVE output channel that decoded/MLP
	// channel i should be written to.
	Perm []int
}

// MaxChannelAssignment is the highest valid channel_assignment code;
// codes above this are invalid and fail probing.
const MaxChannelAssignment = 20

// Table is the literal channel-assignment table, indexed by
// channel_assignment code 0..20.
var Table = [MaxChannelAssignment + 1]Assignment{
	0:  {1, SpeakerFrontCenter, []int{0}},
	1:  {2, SpeakerFrontLeft | SpeakerFrontRight, []int{0, 1}},
	2:  {3, SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackCenter, []int{0, 1, 2}},
	3:  {4, SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackLeft | SpeakerBackRight, []int{0, 1, 2, 3}},
	4:  {3, SpeakerFrontLeft | SpeakerFrontRight | SpeakerLFE, []int{0, 1, 2}},
	5:  {4, SpeakerFrontLeft | SpeakerFrontRight | SpeakerLFE | SpeakerBackCenter, []int{0, 1, 2, 3}},
	6:  {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerLFE | SpeakerBackLeft | SpeakerBackRight, []int{0, 1, 2, 3, 4}},
	7:  {3, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter, []int{0, 1, 2}},
	8:  {4, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerBackCenter, []int{0, 1, 2, 3}},
	9:  {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerBackLeft | SpeakerBackRight, []int{0, 1, 2, 3, 4}},
	10: {4, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerLFE, []int{0, 1, 2, 3}},
	11: {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerLFE | SpeakerBackCenter, []int{0, 1, 2, 3, 4}},
	12: {6, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerLFE | SpeakerBackLeft | SpeakerBackRight, []int{0, 1, 2, 3, 4, 5}},
	13: {4, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerBackCenter, []int{0, 1, 2, 3}},
	14: {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerBackLeft | SpeakerBackRight, []int{0, 1, 2, 3, 4}},
	15: {4, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerLFE, []int{0, 1, 2, 3}},
	16: {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerLFE | SpeakerBackCenter, []int{0, 1, 2, 3, 4}},
	17: {6, SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter | SpeakerLFE | SpeakerBackLeft | SpeakerBackRight, []int{0, 1, 2, 3, 4, 5}},
	18: {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackLeft | SpeakerBackRight | SpeakerLFE, []int{0, 1, 3, 4, 2}},
	19: {5, SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackLeft | SpeakerBackRight | SpeakerFrontCenter, []int{0, 1, 3, 4, 2}},
	20: {6, SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackLeft | SpeakerBackRight | SpeakerFrontCenter | SpeakerLFE, []int{0, 1, 4, 5, 2, 3}},
}

// Lookup returns the Assignment for code, and false if code is out of
// range (> MaxChannelAssignment).
func Lookup(code int) (Assignment, bool) {
	if code < 0 || code > MaxChannelAssignment {
		return Assignment{}, false
	}
	return Table[code], true
}

// PopCount returns the number of set bits in a RIFF-WAVE speaker mask,
// used by tests to check popcount(mask) == channel count.
func PopCount(mask uint32) int {
	count := 0
	for mask != 0 {
		count += int(mask & 1)
		mask >>= 1
	}
	return count
}
