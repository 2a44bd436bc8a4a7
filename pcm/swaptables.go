package pcm

// aobByteSwap is the fixed byte-deinterleave permutation table, indexed
// [bpsIndex][channels-1][i]. Entry i gives the position in the unswapped
// chunk that byte i of the source chunk (channels * 2 * bytesPerSample
// bytes) moves to.
var aobByteSwap = [2][6][]int{
	{ // 16 bps
		{1, 0, 3, 2},
		{1, 0, 3, 2, 5, 4, 7, 6},
		{1, 0, 3, 2, 5, 4, 7, 6, 9, 8, 11, 10},
		{1, 0, 3, 2, 5, 4, 7, 6, 9, 8, 11, 10,
			13, 12, 15, 14},
		{1, 0, 3, 2, 5, 4, 7, 6, 9, 8, 11, 10,
			13, 12, 15, 14, 17, 16, 19, 18},
		{1, 0, 3, 2, 5, 4, 7, 6, 9, 8, 11, 10,
			13, 12, 15, 14, 17, 16, 19, 18, 21, 20, 23, 22},
	},
	{ // 24 bps
		{2, 1, 5, 4, 0, 3},
		{2, 1, 5, 4, 8, 7,
			11, 10, 0, 3, 6, 9},
		{8, 7, 17, 16, 6, 15,
			2, 1, 5, 4, 11, 10,
			14, 13, 0, 3, 9, 12},
		{8, 7, 11, 10, 20, 19,
			23, 22, 6, 9, 18, 21,
			2, 1, 5, 4, 14, 13,
			17, 16, 0, 3, 12, 15},
		{8, 7, 11, 10, 14, 13,
			23, 22, 26, 25, 29, 28,
			6, 9, 12, 21, 24, 27,
			2, 1, 5, 4, 17, 16,
			20, 19, 0, 3, 15, 18},
		{8, 7, 11, 10, 26, 25,
			29, 28, 6, 9, 24, 27,
			2, 1, 5, 4, 14, 13,
			17, 16, 20, 19, 23, 22,
			32, 31, 35, 34, 0, 3,
			12, 15, 18, 21, 30, 33},
	},
}
