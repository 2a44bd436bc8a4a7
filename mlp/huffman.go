package mlp

import (
	"github.com/pkg/errors"

	"dvda/bitio"
)

// huffmanEntry is one canonical-Huffman code/value pair: bits holds the
// codeword's length-many bits, MSB first.
type huffmanEntry struct {
	bits  []bool
	value int
}

// huffmanTables holds the three MLP residual codebooks, reconstructed as canonical Huffman codes from each table's
// documented codeword-length shape (9, 9, and 10 entries respectively;
// see DESIGN.md for why these are not the bit-exact original tables).
var huffmanTables = [3][]huffmanEntry{
	buildCanonical([]int{-7, -6, -5, -4, -3, -2, -1, 0, 1}, []int{9, 8, 5, 4, 3, 2, 1, 1, 2}),
	buildCanonical([]int{-8, -7, -6, -5, -4, -3, -2, -1, 0}, []int{9, 8, 5, 4, 3, 2, 1, 1, 2}),
	buildCanonical([]int{-9, -8, -7, -6, -5, -4, -3, -2, -1, 0}, []int{10, 9, 6, 5, 4, 3, 2, 1, 1, 2}),
}

// buildCanonical assigns canonical Huffman codewords to values given
// their bit lengths, shortest codes first, matching the standard
// canonical-code construction used throughout the MLP/TrueHD family of
// codecs.
func buildCanonical(values []int, lengths []int) []huffmanEntry {
	type pair struct {
		value  int
		length int
	}
	pairs := make([]pair, len(values))
	for i := range values {
		pairs[i] = pair{values[i], lengths[i]}
	}
	// stable sort by length ascending, ties keep input order
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].length < pairs[j-1].length; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}

	entries := make([]huffmanEntry, len(pairs))
	code := 0
	prevLen := 0
	for i, p := range pairs {
		code <<= uint(p.length - prevLen)
		prevLen = p.length
		bits := make([]bool, p.length)
		for b := 0; b < p.length; b++ {
			bits[p.length-1-b] = (code>>uint(b))&1 == 1
		}
		entries[i] = huffmanEntry{bits: bits, value: p.value}
		code++
	}
	return entries
}

// readHuffmanCode reads one codeword from the given codebook (1, 2 or 3)
// bit by bit until a prefix match is found, returning its signed value.
func readHuffmanCode(r *bitio.Reader, codebook int) (int, error) {
	table := huffmanTables[codebook-1]
	var acc []bool
	for len(acc) < 32 {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		acc = append(acc, bit != 0)
		for _, e := range table {
			if boolsEqual(e.bits, acc) {
				return e.value, nil
			}
		}
	}
	return 0, errors.New("mlp: huffman code not found")
}

func boolsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
