package zip

import (
	"fmt"
	"io"
)

// windowBufSize is the read-ahead buffer used to amortize I/O against the
// parent stream.
const windowBufSize = 4096

// Window restricts a parent stream to the absolute byte range [begin, end)
// and exposes it as an io.ReadSeekCloser with window-local offsets.
//
// A Window borrows the parent stream rather than copying it. It repositions
// the parent before every buffer refill, so several Windows may share one
// parent as long as they are not used concurrently. The Window must not
// outlive the parent stream.
type Window struct {
	parent io.ReadSeeker
	begin  int64
	end    int64
	next   int64 // parent offset of the next unbuffered byte
	buf    []byte
	bufPos int
	bufLen int
}

func newWindow(parent io.ReadSeeker, begin, end int64) *Window {
	return &Window{
		parent: parent,
		begin:  begin,
		end:    end,
		next:   begin,
		buf:    make([]byte, windowBufSize),
	}
}

// Size returns the total length of the window in bytes.
func (w *Window) Size() int64 {
	return w.end - w.begin
}

// position returns the window-local offset of the next byte Read would
// deliver, accounting for buffered read-ahead.
func (w *Window) position() int64 {
	return w.next - w.begin - int64(w.bufLen-w.bufPos)
}

func (w *Window) Read(p []byte) (int, error) {
	if w.bufPos >= w.bufLen {
		if err := w.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, w.buf[w.bufPos:w.bufLen])
	w.bufPos += n
	return n, nil
}

// fill refills the read-ahead buffer from the parent stream, never reading
// past the window end. A short read from the parent is treated as end of
// window.
func (w *Window) fill() error {
	if w.next >= w.end {
		return io.EOF
	}
	if _, err := w.parent.Seek(w.next, io.SeekStart); err != nil {
		return fmt.Errorf("seeking parent stream: %w", err)
	}
	want := w.end - w.next
	if want > int64(len(w.buf)) {
		want = int64(len(w.buf))
	}
	n, err := w.parent.Read(w.buf[:want])
	if n == 0 {
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading parent stream: %w", err)
		}
		return io.EOF
	}
	w.bufPos = 0
	w.bufLen = n
	w.next += int64(n)
	return nil
}

// Seek repositions the window to a window-local offset. Offsets outside
// [0, Size()] fail without changing the current position. Any successful
// seek discards buffered read-ahead.
func (w *Window) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = w.position() + offset
	case io.SeekEnd:
		target = w.Size() + offset
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}
	if target < 0 || target > w.Size() {
		return 0, fmt.Errorf("seek offset %d outside window of %d bytes", target, w.Size())
	}
	w.next = w.begin + target
	w.bufPos = 0
	w.bufLen = 0
	return target, nil
}

// Close releases nothing; the parent stream stays open and is owned by the
// caller (or the Archive the window was produced by).
func (w *Window) Close() error {
	return nil
}
