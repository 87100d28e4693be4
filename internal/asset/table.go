// Package asset maps logical keys to byte streams that may live as loose
// files on disk or as entries inside ZIP archives. Search roots are
// registered at integer priorities and consulted in ascending order, so a
// higher-priority root (say, a user override directory) transparently
// shadows a lower-priority bundled archive.
package asset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
)

// searchRoot pairs one registered source with its rank in the resolution
// order.
type searchRoot struct {
	priority int
	source   Source
}

// Table is the priority-ordered collection of search roots. Registration
// constructs sources eagerly (an archive's central directory is parsed
// immediately; a failed registration adds nothing), and Open walks the
// roots in ascending priority, insertion order breaking ties.
//
// A Table and the streams it hands out share per-source backing streams
// and are not safe for concurrent use; integrators needing that must hold
// one lock across every Open and registration call.
type Table struct {
	roots []searchRoot
	log   *slog.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithLogger routes the table's diagnostics to log instead of the
// process-default logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Table) {
		t.log = log
	}
}

func NewTable(opts ...Option) *Table {
	t := &Table{
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// insert places a source after every root of equal or lower priority, so
// registration order is stable among equal priorities.
func (t *Table) insert(priority int, source Source) {
	i := sort.Search(len(t.roots), func(i int) bool {
		return t.roots[i].priority > priority
	})
	t.roots = append(t.roots, searchRoot{})
	copy(t.roots[i+1:], t.roots[i:])
	t.roots[i] = searchRoot{priority: priority, source: source}
}

// AddDirectory registers an on-disk directory as a search root.
func (t *Table) AddDirectory(priority int, path string) error {
	source, err := NewDirectorySource(path, t.log)
	if err != nil {
		return fmt.Errorf("adding directory %s: %w", path, err)
	}
	t.insert(priority, source)
	t.log.Debug("Registered asset directory", "priority", priority, "path", path)
	return nil
}

// AddArchive registers the ZIP archive at path as a search root, parsing
// its central directory immediately.
func (t *Table) AddArchive(priority int, path string) error {
	source, err := NewArchiveSource(path)
	if err != nil {
		return fmt.Errorf("adding archive %s: %w", path, err)
	}
	t.insert(priority, source)
	t.log.Debug("Registered asset archive", "priority", priority, "path", path)
	return nil
}

// AddArchiveReader registers an archive held in a caller-owned stream.
// The caller keeps r open while the table (and any stream opened through
// it) is in use.
func (t *Table) AddArchiveReader(priority int, r io.ReadSeeker) error {
	source, err := NewArchiveSourceFromReader(r)
	if err != nil {
		return fmt.Errorf("adding archive stream: %w", err)
	}
	t.insert(priority, source)
	t.log.Debug("Registered asset archive stream", "priority", priority)
	return nil
}

// Open resolves key against the search roots in priority order and
// returns the first hit. A root that simply lacks the key is skipped;
// any other failure (a corrupt entry, an unsupported compression method)
// aborts the lookup. When no root carries the key the aggregate miss is
// an error naming the key.
func (t *Table) Open(key string) (io.ReadSeekCloser, error) {
	for _, root := range t.roots {
		stream, err := root.source.Open(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return stream, nil
	}
	t.log.Error("Asset not found in any search root", "key", key)
	return nil, &fs.PathError{Op: "open", Path: key, Err: fs.ErrNotExist}
}

// TableEntry is one resolvable key with the search root that claims it.
type TableEntry struct {
	Entry
	Priority int
	Source   string
}

// Entries merges per-root listings with shadowing applied: the first root
// (in resolution order) carrying a key claims it. Results come back
// sorted by key.
func (t *Table) Entries() ([]TableEntry, error) {
	seen := make(map[string]bool)
	var merged []TableEntry
	for _, root := range t.roots {
		entries, err := root.source.Entries()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if seen[e.Key] {
				continue
			}
			seen[e.Key] = true
			merged = append(merged, TableEntry{
				Entry:    e,
				Priority: root.priority,
				Source:   root.source.String(),
			})
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Key < merged[j].Key
	})
	return merged, nil
}

// Close closes every registered source. The table must not be used
// afterwards.
func (t *Table) Close() error {
	var firstErr error
	for _, root := range t.roots {
		if err := root.source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
