package zip

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDeflate compresses data and hands back a deflateReader over the
// compressed bytes, as Archive.Open would produce it.
func newTestDeflate(t *testing.T, data []byte) *deflateReader {
	t.Helper()
	payload := deflateBytes(t, data)
	win := newWindow(bytes.NewReader(payload), 0, int64(len(payload)))
	return newDeflateReader(win, "test-entry", int64(len(data)))
}

func TestDeflateRoundTrip(t *testing.T) {
	data := compressible(4096)
	d := newTestDeflate(t, data)
	defer d.Close()

	got, err := io.ReadAll(d)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDeflateSmallReads(t *testing.T) {
	data := compressible(1000)
	d := newTestDeflate(t, data)
	defer d.Close()

	var got []byte
	buf := make([]byte, 7)
	for {
		n, err := d.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, data, got)
}

func TestDeflateSeekForward(t *testing.T) {
	data := compressible(2048)
	d := newTestDeflate(t, data)
	defer d.Close()

	pos, err := d.Seek(1500, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), pos)

	got, err := io.ReadAll(d)
	require.NoError(t, err)
	assert.Equal(t, data[1500:], got)
}

func TestDeflateSeekBackwardRestarts(t *testing.T) {
	data := compressible(2048)
	d := newTestDeflate(t, data)
	defer d.Close()

	_, err := io.CopyN(io.Discard, d, 2000)
	require.NoError(t, err)

	pos, err := d.Seek(10, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)

	got, err := io.ReadAll(d)
	require.NoError(t, err)
	assert.Equal(t, data[10:], got)
}

func TestDeflateSeekEndRelative(t *testing.T) {
	data := compressible(512)
	d := newTestDeflate(t, data)
	defer d.Close()

	pos, err := d.Seek(-100, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(412), pos)

	got, err := io.ReadAll(d)
	require.NoError(t, err)
	assert.Equal(t, data[412:], got)
}

func TestDeflateSeekOutOfRange(t *testing.T) {
	data := compressible(512)
	d := newTestDeflate(t, data)
	defer d.Close()

	_, err := d.Seek(513, io.SeekStart)
	require.Error(t, err)
	_, err = d.Seek(-1, io.SeekStart)
	require.Error(t, err)

	// Stream still reads from the start after the failed seeks.
	got, err := io.ReadAll(d)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDeflateCorruptStream(t *testing.T) {
	garbage := []byte{0xff, 0xff, 0x00, 0x12, 0x34, 0x56, 0x78, 0x9a}
	win := newWindow(bytes.NewReader(garbage), 0, int64(len(garbage)))
	d := newDeflateReader(win, "broken-entry", 64)
	defer d.Close()

	_, err := io.ReadAll(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken-entry")
}

func TestDeflateTruncatedStream(t *testing.T) {
	data := compressible(4096)
	payload := deflateBytes(t, data)

	// Cut the compressed extent short; the decoder must report an error
	// rather than a silent short stream.
	win := newWindow(bytes.NewReader(payload[:len(payload)/2]), 0, int64(len(payload)/2))
	d := newDeflateReader(win, "truncated-entry", int64(len(data)))
	defer d.Close()

	_, err := io.ReadAll(d)
	require.Error(t, err)
}
