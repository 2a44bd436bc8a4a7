package mlp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dvda/bitio"
)

func buildMajorSync(t *testing.T, group0bps, group0rate uint64, chanAssign uint64, substreamCount uint64) []byte {
	t.Helper()
	w := &bitWriter{}
	w.push(24, majorSyncWord)
	w.push(8, majorStreamTyp)
	w.push(4, group0bps)
	w.push(4, 0) // group_1_bps
	w.push(4, group0rate)
	w.push(4, 0) // group_1_rate
	w.push(11, 0)
	w.push(5, chanAssign)
	w.push(48, 0)
	w.push(1, 0) // is_VBR
	w.push(15, 0)
	w.push(4, substreamCount)
	w.push(92, 0)
	return w.bytes(t)
}

func TestReadMajorSyncValid(t *testing.T) {
	data := buildMajorSync(t, 0, 0, 1, 2)
	r := bitio.NewReader(data)

	params, count, ok, err := readMajorSync(r)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, count)
	require.Equal(t, 16, params.Group0BPS)
	require.Equal(t, 48000, params.Group0Rate)
	require.Equal(t, 1, params.ChannelAssignment)
	require.True(t, r.ByteAligned())
	require.Equal(t, 0, r.BytesRemaining())
}

func TestReadMajorSyncRewindsOnBadSync(t *testing.T) {
	data := buildMajorSync(t, 0, 0, 1, 2)
	data[0] ^= 0xFF // corrupt sync_words

	r := bitio.NewReader(data)
	mark := r.Mark()
	_, _, ok, err := readMajorSync(r)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, mark, r.Mark())
}

func TestReadMajorSyncRejectsBadSubstreamCount(t *testing.T) {
	data := buildMajorSync(t, 0, 0, 1, 3)
	r := bitio.NewReader(data)
	_, _, ok, err := readMajorSync(r)
	require.NoError(t, err)
	require.False(t, ok)
}
