// Package zip reads entries out of ZIP-format archives without extracting
// them. It parses the central directory once at open time into a name
// index, re-reads each entry's local file header on demand, and exposes
// entry contents as seekable byte streams, decompressing deflate entries
// on the fly.
//
// Only single-disk, non-ZIP64 archives with stored or deflate entries are
// supported. Writing, encryption, and multi-disk archives are out of
// scope.
package zip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
)

const (
	localHeaderLen = 30

	// EOCD records carry a variable-length trailing comment, so the
	// signature is searched backward from the end of the file in fixed
	// windows. 64 windows of 1 KiB cover every comment a standard
	// archive can carry.
	eocdScanWindow = 1024
	eocdScanLimit  = 64

	localHeaderSignature   = 0x04034b50
	centralHeaderSignature = 0x02014b50
	eocdRecordSignature    = 0x06054b50
)

var eocdSignature = []byte{0x50, 0x4b, 0x05, 0x06}

// CompressionMethod identifies how an entry's bytes are encoded.
type CompressionMethod uint16

const (
	MethodStored  CompressionMethod = 0
	MethodDeflate CompressionMethod = 8
)

func (m CompressionMethod) String() string {
	switch m {
	case MethodStored:
		return "stored"
	case MethodDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("method(%d)", uint16(m))
	}
}

type localHeader struct {
	Signature        uint32
	_                uint16 // version needed to extract
	Flags            uint16
	Method           uint16
	_                uint32 // modification time and date
	_                uint32 // crc32
	CompressedSize   uint32
	UncompressedSize uint32
	NameLen          uint16
	ExtraLen         uint16
}

type centralHeader struct {
	Signature        uint32
	_                uint16 // version made by
	_                uint16 // version needed to extract
	Flags            uint16
	Method           uint16
	_                uint32 // modification time and date
	_                uint32 // crc32
	CompressedSize   uint32
	UncompressedSize uint32
	NameLen          uint16
	ExtraLen         uint16
	CommentLen       uint16
	_                uint16 // disk number start
	_                uint16 // internal attributes
	_                uint32 // external attributes
	LocalOffset      uint32
}

type eocdRecord struct {
	Signature  uint32
	_          uint16 // disk number
	_          uint16 // central directory disk
	_          uint16 // entries on this disk
	Entries    uint16
	_          uint32 // central directory size
	Offset     uint32
	CommentLen uint16
}

// Entry describes one archive member, as recorded in its local file
// header.
type Entry struct {
	Name             string
	Method           CompressionMethod
	CompressedSize   int64
	UncompressedSize int64
}

// Archive is a read-only view of a ZIP archive. The central directory is
// parsed once at construction into a name -> local-header-offset index;
// lookups after that touch only the local headers.
//
// An Archive and every stream it produces share one backing stream, so
// neither the Archive nor its open entries are safe for concurrent use,
// and no entry stream may outlive the Archive (or, for NewArchive, the
// caller-supplied stream) it came from.
type Archive struct {
	r     io.ReadSeeker
	file  *os.File // non-nil when the archive owns the backing file
	index map[string]int64
}

// OpenArchive opens the ZIP archive at path and parses its central
// directory. The returned Archive owns the file handle; Close releases it.
func OpenArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := NewArchive(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing archive %s: %w", path, err)
	}
	a.file = f
	return a, nil
}

// NewArchive parses the central directory of the archive in r. The
// Archive borrows r: the caller must keep r open for as long as the
// Archive and any streams it has produced are in use.
func NewArchive(r io.ReadSeeker) (*Archive, error) {
	a := &Archive{
		r:     r,
		index: make(map[string]int64),
	}
	if err := a.readCentralDirectory(); err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the backing file if the Archive owns one. Streams opened
// from the Archive are invalid after Close.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Open returns a seekable stream over the named entry's decoded bytes.
// A missing name is reported with fs.ErrNotExist; a present entry with an
// unsupported compression method is an error.
func (a *Archive) Open(name string) (io.ReadSeekCloser, error) {
	base, ok := a.index[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	lh, err := a.readLocalHeader(base)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", name, err)
	}

	// The local header's own name and extra-field lengths are
	// authoritative for locating the data; they can legitimately differ
	// from the central directory's copies.
	dataStart := base + localHeaderLen + int64(lh.NameLen) + int64(lh.ExtraLen)

	switch CompressionMethod(lh.Method) {
	case MethodStored:
		return newWindow(a.r, dataStart, dataStart+int64(lh.UncompressedSize)), nil
	case MethodDeflate:
		win := newWindow(a.r, dataStart, dataStart+int64(lh.CompressedSize))
		return newDeflateReader(win, name, int64(lh.UncompressedSize)), nil
	default:
		return nil, fmt.Errorf("entry %s: unsupported compression method %d", name, lh.Method)
	}
}

// Stat returns the metadata recorded in the named entry's local header.
func (a *Archive) Stat(name string) (Entry, error) {
	base, ok := a.index[name]
	if !ok {
		return Entry{}, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	lh, err := a.readLocalHeader(base)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", name, err)
	}
	return Entry{
		Name:             name,
		Method:           CompressionMethod(lh.Method),
		CompressedSize:   int64(lh.CompressedSize),
		UncompressedSize: int64(lh.UncompressedSize),
	}, nil
}

// Entries lists every indexed entry in name order.
func (a *Archive) Entries() ([]Entry, error) {
	names := make([]string, 0, len(a.index))
	for name := range a.index {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := a.Stat(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (a *Archive) readLocalHeader(base int64) (localHeader, error) {
	var lh localHeader
	if _, err := a.r.Seek(base, io.SeekStart); err != nil {
		return lh, fmt.Errorf("seeking local header at %d: %w", base, err)
	}
	if err := binary.Read(a.r, binary.LittleEndian, &lh); err != nil {
		return lh, fmt.Errorf("reading local header at %d: %w", base, err)
	}
	if lh.Signature != localHeaderSignature {
		return lh, fmt.Errorf("bad local header signature at %d", base)
	}
	return lh, nil
}

func (a *Archive) readCentralDirectory() error {
	eocdPos, err := findEndOfCentralDirectory(a.r)
	if err != nil {
		return err
	}

	var eocd eocdRecord
	if _, err := a.r.Seek(eocdPos, io.SeekStart); err != nil {
		return fmt.Errorf("seeking end of central directory: %w", err)
	}
	if err := binary.Read(a.r, binary.LittleEndian, &eocd); err != nil {
		return fmt.Errorf("reading end of central directory: %w", err)
	}

	base := int64(eocd.Offset)
	for i := 0; i < int(eocd.Entries); i++ {
		var ch centralHeader
		if _, err := a.r.Seek(base, io.SeekStart); err != nil {
			return fmt.Errorf("seeking central directory record %d: %w", i, err)
		}
		if err := binary.Read(a.r, binary.LittleEndian, &ch); err != nil {
			return fmt.Errorf("reading central directory record %d: %w", i, err)
		}
		if ch.Signature != centralHeaderSignature {
			return fmt.Errorf("bad central directory signature in record %d at %d", i, base)
		}

		name := make([]byte, ch.NameLen)
		if _, err := io.ReadFull(a.r, name); err != nil {
			return fmt.Errorf("reading name of central directory record %d: %w", i, err)
		}

		// Last record wins for duplicate names.
		a.index[string(name)] = int64(ch.LocalOffset)

		base += int64(binary.Size(ch)) + int64(ch.NameLen) + int64(ch.ExtraLen) + int64(ch.CommentLen)
	}

	return nil
}

// findEndOfCentralDirectory scans backward from the end of the stream for
// the EOCD signature, one window at a time, up to eocdScanLimit windows.
func findEndOfCentralDirectory(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seeking end of archive: %w", err)
	}

	window := make([]byte, eocdScanWindow)
	pos := size - eocdScanWindow
	for i := 0; i < eocdScanLimit; i++ {
		if pos < 0 {
			pos = 0
		}
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seeking scan window at %d: %w", pos, err)
		}
		n, err := io.ReadFull(r, window)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("reading scan window at %d: %w", pos, err)
		}
		for j := n - len(eocdSignature); j >= 0; j-- {
			if bytes.Equal(window[j:j+len(eocdSignature)], eocdSignature) {
				return pos + int64(j), nil
			}
		}
		if pos == 0 {
			break
		}
		pos -= eocdScanWindow
	}

	return 0, fmt.Errorf("end of central directory record not found")
}
