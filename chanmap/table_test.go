package chanmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableInvariants(t *testing.T) {
	for code, a := range Table {
		require.Equal(t, a.Channels, PopCount(a.Mask), "code %d mask/channel count mismatch", code)
		require.Len(t, a.Perm, a.Channels, "code %d perm length mismatch", code)
	}
}

func TestLookupOutOfRange(t *testing.T) {
	_, ok := Lookup(21)
	require.False(t, ok)

	_, ok = Lookup(-1)
	require.False(t, ok)

	a, ok := Lookup(20)
	require.True(t, ok)
	require.Equal(t, 6, a.Channels)
	require.Equal(t, []int{0, 1, 4, 5, 2, 3}, a.Perm)
}
