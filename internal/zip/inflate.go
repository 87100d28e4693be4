package zip

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateReader decompresses a raw-deflate entry on the fly. It wraps a
// Window over the entry's compressed extent; the inflater pulls compressed
// chunks from the window (which caps every read at the remaining extent)
// and buffers decompressed output internally.
//
// Seeking is supported but expensive: a backward seek restarts
// decompression from the beginning of the entry and forward seeks discard
// intervening output, so any Seek may cost O(size). Callers that need
// random access should prefer stored entries or read the stream once.
type deflateReader struct {
	win  *Window
	name string
	size int64 // uncompressed size, from the local file header
	pos  int64 // decompressed bytes delivered so far
	fr   io.ReadCloser
}

func newDeflateReader(win *Window, name string, size int64) *deflateReader {
	return &deflateReader{
		win:  win,
		name: name,
		size: size,
		fr:   flate.NewReader(win),
	}
}

func (d *deflateReader) Read(p []byte) (int, error) {
	n, err := d.fr.Read(p)
	d.pos += int64(n)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("inflating %s: %w", d.name, err)
	}
	return n, err
}

func (d *deflateReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.pos + offset
	case io.SeekEnd:
		target = d.size + offset
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}
	if target < 0 || target > d.size {
		return 0, fmt.Errorf("seek offset %d outside entry of %d bytes", target, d.size)
	}
	if target < d.pos {
		// Restart decompression from the top of the compressed extent.
		if _, err := d.win.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		d.fr.Close()
		d.fr = flate.NewReader(d.win)
		d.pos = 0
	}
	if target > d.pos {
		if _, err := io.CopyN(io.Discard, d, target-d.pos); err != nil {
			return 0, fmt.Errorf("discarding to seek target in %s: %w", d.name, err)
		}
	}
	return d.pos, nil
}

func (d *deflateReader) Close() error {
	return d.fr.Close()
}
