// Package source implements the compiler's Source Store: the one mutable
// input of the whole pipeline. Every other query is a pure function of
// what this package reads off disk.
package source

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/exc-lang/exc/internal/intern"
)

// FileID is a stable integer id for an absolute file path, interned by a
// Store's table.
type FileID = intern.ID

// Contents is a file's bytes together with a content fingerprint. Two
// Contents values with equal Hash are treated as the same version of a
// file even if they were read at different times, which is what lets
// early cutoff survive editors that rewrite a file with identical bytes.
type Contents struct {
	Bytes []byte
	Hash  uint64
}

// Store is the compiler's Source Store (§4.2 of the design): it interns
// file paths into [FileID]s and reads their current contents, tracking
// enough state to tell a watcher whether a given path's content has
// actually changed since it was last read.
//
// A Store is safe for concurrent use.
type Store struct {
	table *intern.Table

	mu    sync.Mutex
	known map[FileID]knownState
}

type knownState struct {
	hash    uint64
	modTime time.Time
}

// New constructs an empty Store backed by the given path interner. Passing
// the same table to every Store sharing a compilation keeps FileIDs
// consistent across them.
func New(table *intern.Table) *Store {
	return &Store{table: table, known: map[FileID]knownState{}}
}

// FileID interns path's absolute form, returning a stable id for it.
func (s *Store) FileID(path string) FileID {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return s.table.Intern(abs)
}

// Path recovers the absolute path for a FileID previously produced by
// FileID.
func (s *Store) Path(id FileID) string {
	return s.table.Value(id)
}

// Read returns the current contents of the file named by id, along with
// its hash. It always reads through to disk: callers that want
// memoization should wrap this in an [incremental.Query].
func (s *Store) Read(id FileID) (Contents, error) {
	path := s.Path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return Contents{}, err
	}

	hash := xxhash.Sum64(data)

	info, statErr := os.Stat(path)
	s.mu.Lock()
	if statErr == nil {
		s.known[id] = knownState{hash: hash, modTime: info.ModTime()}
	} else {
		s.known[id] = knownState{hash: hash}
	}
	s.mu.Unlock()

	return Contents{Bytes: data, Hash: hash}, nil
}

// Changed reports whether the file named by id has content different from
// the last time [Store.Read] observed it (or from nothing, if it has
// never been read). A stat-only mtime bump with identical bytes (as some
// editors and build tools produce) is reported as unchanged.
func (s *Store) Changed(id FileID) (bool, error) {
	path := s.Path(id)
	info, err := os.Stat(path)
	if err != nil {
		return true, err
	}

	s.mu.Lock()
	prev, ok := s.known[id]
	s.mu.Unlock()
	if !ok {
		return true, nil
	}
	if info.ModTime().Equal(prev.modTime) {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return true, err
	}
	return xxhash.Sum64(data) != prev.hash, nil
}

// URL builds the canonical query URL for a file's contents, used by both
// the compiler's "source" query and [Store]'s callers so invalidation and
// lookup always agree on the key.
func URL(path string) string {
	return "source:///" + path
}
