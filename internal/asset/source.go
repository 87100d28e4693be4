package asset

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"assetfs/internal/zip"
)

// maxAssetPath bounds the joined root+key path handed to the OS. Longer
// paths are treated as a miss for the source, not an error.
const maxAssetPath = 1024

// Entry describes one resolvable asset as seen by a single source.
type Entry struct {
	Key              string
	Method           zip.CompressionMethod
	UncompressedSize int64
}

// Source resolves keys to byte streams. The set of implementations is
// closed: assets live either loose under a directory root or inside a
// ZIP archive.
//
// Open reports a key the source does not carry with an error wrapping
// fs.ErrNotExist; any other failure is a real error. Entries lists every
// key the source can currently resolve.
type Source interface {
	Open(key string) (io.ReadSeekCloser, error)
	Entries() ([]Entry, error)
	String() string
	Close() error
}

// DirectorySource resolves keys against files under one on-disk root.
// It keeps no state beyond the root path: every Open re-touches the
// filesystem, so files added or changed under the root are visible
// immediately.
type DirectorySource struct {
	root string
	log  *slog.Logger
}

// NewDirectorySource validates that root names an existing directory.
func NewDirectorySource(root string, log *slog.Logger) (*DirectorySource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("asset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", root)
	}
	return &DirectorySource{root: root, log: log}, nil
}

func (s *DirectorySource) Open(key string) (io.ReadSeekCloser, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if len(path) > maxAssetPath {
		s.log.Warn("Asset path too long", "root", s.root, "key", key, "length", len(path))
		return nil, &fs.PathError{Op: "open", Path: key, Err: fs.ErrNotExist}
	}
	f, err := os.Open(path)
	if err != nil {
		// Unreadable is a miss for this source; the next search root may
		// still carry the key.
		return nil, &fs.PathError{Op: "open", Path: key, Err: fs.ErrNotExist}
	}
	return f, nil
}

func (s *DirectorySource) Entries() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Key:              filepath.ToSlash(rel),
			Method:           zip.MethodStored,
			UncompressedSize: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking asset root %s: %w", s.root, err)
	}
	return entries, nil
}

func (s *DirectorySource) String() string {
	return "dir:" + s.root
}

func (s *DirectorySource) Close() error {
	return nil
}

// ArchiveSource resolves keys against the entries of one ZIP archive.
// The archive's central directory is parsed eagerly at construction and
// never re-read. Streams produced by Open borrow the archive's backing
// stream and must not outlive the source.
type ArchiveSource struct {
	archive *zip.Archive
	name    string
}

// NewArchiveSource opens and indexes the archive at path.
func NewArchiveSource(path string) (*ArchiveSource, error) {
	a, err := zip.OpenArchive(path)
	if err != nil {
		return nil, err
	}
	return &ArchiveSource{archive: a, name: path}, nil
}

// NewArchiveSourceFromReader indexes an archive in a caller-owned stream.
// The caller must keep r open for the life of the source and of every
// stream it produces.
func NewArchiveSourceFromReader(r io.ReadSeeker) (*ArchiveSource, error) {
	a, err := zip.NewArchive(r)
	if err != nil {
		return nil, err
	}
	return &ArchiveSource{archive: a, name: "stream"}, nil
}

func (s *ArchiveSource) Open(key string) (io.ReadSeekCloser, error) {
	return s.archive.Open(key)
}

func (s *ArchiveSource) Entries() ([]Entry, error) {
	zipEntries, err := s.archive.Entries()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(zipEntries))
	for _, e := range zipEntries {
		entries = append(entries, Entry{
			Key:              e.Name,
			Method:           e.Method,
			UncompressedSize: e.UncompressedSize,
		})
	}
	return entries, nil
}

func (s *ArchiveSource) String() string {
	return "zip:" + s.name
}

func (s *ArchiveSource) Close() error {
	return s.archive.Close()
}
