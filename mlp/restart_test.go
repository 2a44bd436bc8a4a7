package mlp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dvda/bitio"
)

func buildRestartHeader(t *testing.T, minChannel, maxChannel, maxMatrixChannel uint64) []byte {
	t.Helper()
	w := &bitWriter{}
	w.push(13, restartHeaderSync)
	w.push(1, 0) // noise_type
	w.push(16, 0)
	w.push(4, minChannel)
	w.push(4, maxChannel)
	w.push(4, maxMatrixChannel)
	w.push(4, 0) // noise_shift
	w.push(23, 0x123456&0x7FFFFF)
	w.push(19, 0) // unknown1
	w.push(1, 1)  // check_data_present
	w.push(8, 0)  // lossless_check
	w.push(16, 0) // unknown2
	for c := uint64(0); c <= maxMatrixChannel; c++ {
		w.push(6, c)
	}
	w.push(8, 0) // checksum
	return w.bytes(t)
}

func TestDecodeRestartHeaderValid(t *testing.T) {
	data := buildRestartHeader(t, 0, 1, 1)
	r := bitio.NewReader(data)

	hdr, ok, err := decodeRestartHeader(r)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, hdr.MinChannel)
	require.Equal(t, 1, hdr.MaxChannel)
	require.Equal(t, 1, hdr.MaxMatrixChannel)
	require.Equal(t, 0, hdr.ChannelAssignment[0])
	require.Equal(t, 1, hdr.ChannelAssignment[1])
}

func TestDecodeRestartHeaderRejectsBadSync(t *testing.T) {
	data := buildRestartHeader(t, 0, 1, 1)
	data[0] ^= 0xFF
	r := bitio.NewReader(data)

	_, ok, err := decodeRestartHeader(r)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecodeRestartHeaderRejectsInvertedChannelRange(t *testing.T) {
	// max_channel < min_channel is invalid.
	w := &bitWriter{}
	w.push(13, restartHeaderSync)
	w.push(1, 0)
	w.push(16, 0)
	w.push(4, 2) // min_channel
	w.push(4, 1) // max_channel < min_channel
	w.push(4, 2)
	w.push(4, 0)
	w.push(23, 0)
	w.push(19, 0)
	w.push(1, 0)
	w.push(8, 0)
	w.push(16, 0)
	data := w.bytes(t)

	r := bitio.NewReader(data)
	_, ok, err := decodeRestartHeader(r)
	require.NoError(t, err)
	require.False(t, ok)
}
