package pcm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSwapTablesArePermutations checks every byte-swap row is a
// bijection over its chunk: each source index appears exactly once, so
// unswapping then re-swapping through the inverse recovers the original
// bytes.
func TestSwapTablesArePermutations(t *testing.T) {
	for bpsIdx, bytesPerSample := range map[int]int{0: 2, 1: 3} {
		for ch := 1; ch <= 6; ch++ {
			row := aobByteSwap[bpsIdx][ch-1]
			chunkSize := ch * 2 * bytesPerSample
			require.Lenf(t, row, chunkSize, "bps index %d, %d ch", bpsIdx, ch)

			seen := make([]bool, chunkSize)
			for _, src := range row {
				require.Less(t, src, chunkSize)
				require.Falsef(t, seen[src], "bps index %d, %d ch: duplicate index %d", bpsIdx, ch, src)
				seen[src] = true
			}
		}
	}
}

func TestSwapRoundTrip(t *testing.T) {
	for bpsIdx, bytesPerSample := range map[int]int{0: 2, 1: 3} {
		for ch := 1; ch <= 6; ch++ {
			row := aobByteSwap[bpsIdx][ch-1]
			chunkSize := ch * 2 * bytesPerSample

			chunk := make([]byte, chunkSize)
			for i := range chunk {
				chunk[i] = byte(i * 7)
			}

			unswapped := make([]byte, chunkSize)
			for i := range chunk {
				unswapped[row[i]] = chunk[i]
			}
			reswapped := make([]byte, chunkSize)
			for i := range unswapped {
				reswapped[i] = unswapped[row[i]]
			}
			require.Equal(t, chunk, reswapped, "bps index %d, %d ch", bpsIdx, ch)
		}
	}
}
