package pcm

import (
	"testing"

	"dvda/bitio"
)

func newTestReader(b []byte) *bitio.Reader {
	return bitio.NewReader(b)
}

// headerBits hand-assembles a PCM stream-parameter header:
// 16-bit first-audio-frame, 8-bit skip, four 4-bit codes, 8-bit skip,
// 5-bit channel_assignment, 8-bit skip, 8-bit CRC.
func headerBits(t *testing.T, group0bps, group1bps, group0rate, group1rate, chanAssign uint32) []byte {
	t.Helper()
	bits := make([]bool, 0, 64)
	push := func(n int, v uint32) {
		for i := n - 1; i >= 0; i-- {
			bits = append(bits, (v>>uint(i))&1 == 1)
		}
	}
	push(16, 0) // first_audio_frame
	push(8, 0)
	push(4, group0bps)
	push(4, group1bps)
	push(4, group0rate)
	push(4, group1rate)
	push(8, 0)
	push(5, chanAssign)
	push(8, 0)
	push(8, 0) // CRC

	for len(bits)%8 != 0 {
		bits = append(bits, false)
	}

	out := make([]byte, 0, len(bits)/8)
	for i := 0; i < len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if bits[i+j] {
				b |= 1
			}
		}
		out = append(out, b)
	}
	return out
}
