package incremental

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const (
	cacheMagic   = "EXC1CACHE"
	cacheVersion = uint32(1)
)

// ErrCacheStale is returned by [Load] when the cache file's header or
// checksum does not match what this build of the compiler expects. The
// caller should discard it and start cold, per the design's "format is
// opaque but must be self-describing enough to detect version mismatches"
// requirement.
var ErrCacheStale = errors.New("incremental: cache is missing, stale, or corrupt")

// persistedEntry is the on-disk representation of one memoized query
// result. Value and Errors are encoded as interfaces, so any concrete type
// a query produces (or uses as a diagnostic) must be registered with
// gob.Register by its owning package before [Save]/[Load] are used.
type persistedEntry struct {
	URL                    string
	Value                  any
	Errors                 []error
	Failed                 bool
	Deps                   []string
	ChangedAt, VerifiedAt  uint64
}

type snapshot struct {
	Revision uint64
	Entries  []persistedEntry
}

// Save serializes every started entry in e to path, in a small
// self-describing format: a magic string, a format version, and an
// xxhash-64 checksum of the gob-encoded payload. A mismatch on load
// (different version, truncated file, bad checksum) is reported as
// [ErrCacheStale] rather than a decoding panic.
func (e *Executor) Save(path string) error {
	snap := snapshot{Revision: e.revisionNow()}

	e.entriesMu.RLock()
	e.entries.Scan(func(url string, ent *entry) bool {
		ent.mu.Lock()
		defer ent.mu.Unlock()
		if !ent.started {
			return true
		}
		deps := make([]string, len(ent.deps))
		for i, d := range ent.deps {
			deps[i] = d.url
		}
		snap.Entries = append(snap.Entries, persistedEntry{
			URL:         url,
			Value:       ent.value,
			Errors:      ent.errors,
			Failed:      ent.failed,
			Deps:        deps,
			ChangedAt:   ent.changedAt,
			VerifiedAt:  ent.verifiedAt,
		})
		return true
	})
	e.entriesMu.RUnlock()

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(snap); err != nil {
		return fmt.Errorf("incremental: encoding cache: %w", err)
	}

	var header bytes.Buffer
	header.WriteString(cacheMagic)
	_ = binary.Write(&header, binary.LittleEndian, cacheVersion)
	_ = binary.Write(&header, binary.LittleEndian, uint64(payload.Len()))
	_ = binary.Write(&header, binary.LittleEndian, xxhash.Sum64(payload.Bytes()))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := f.Write(payload.Bytes()); err != nil {
		return err
	}
	return nil
}

// Load reads a cache previously written by [Save] into a fresh Executor
// with the given parallelism. If the file is missing or fails any of the
// self-describing checks, Load returns [ErrCacheStale] and a cold,
// otherwise-usable Executor: recomputation proceeds normally from there.
func Load(path string, parallelism int) (*Executor, error) {
	e := New(parallelism)

	f, err := os.Open(path)
	if err != nil {
		return e, ErrCacheStale
	}
	defer f.Close()

	magic := make([]byte, len(cacheMagic))
	if _, err := io.ReadFull(f, magic); err != nil || string(magic) != cacheMagic {
		return e, ErrCacheStale
	}

	var version uint32
	var length, checksum uint64
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil || version != cacheVersion {
		return e, ErrCacheStale
	}
	if err := binary.Read(f, binary.LittleEndian, &length); err != nil {
		return e, ErrCacheStale
	}
	if err := binary.Read(f, binary.LittleEndian, &checksum); err != nil {
		return e, ErrCacheStale
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f, payload); err != nil {
		return e, ErrCacheStale
	}
	if xxhash.Sum64(payload) != checksum {
		return e, ErrCacheStale
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&snap); err != nil {
		return e, ErrCacheStale
	}

	byURL := make(map[string]*entry, len(snap.Entries))
	for _, pe := range snap.Entries {
		if len(pe.Deps) == 0 {
			// A query with no recorded dependencies only ever reads some
			// resource external to the engine (e.g. a file's bytes off
			// disk); that resource may have changed while this process
			// wasn't running, and nothing records that for us the way
			// Invalidate does for a live edit. Leave it unstarted instead
			// of restoring it, so its next request takes the engine's
			// normal "never computed" path and genuinely re-reads it --
			// and, through the dependency edges reconstructed below,
			// forces re-verification of everything that depends on it.
			// This is the startup "mark every source file as potentially
			// changed" rule.
			continue
		}
		ent := e.getEntryByURL(pe.URL)
		ent.value = pe.Value
		ent.errors = pe.Errors
		ent.failed = pe.Failed
		ent.changedAt = pe.ChangedAt
		ent.verifiedAt = pe.VerifiedAt
		ent.started = true
		byURL[pe.URL] = ent
	}
	for _, pe := range snap.Entries {
		ent, ok := byURL[pe.URL]
		if !ok {
			continue
		}
		for _, depURL := range pe.Deps {
			ent.deps = append(ent.deps, e.getEntryByURL(depURL))
		}
	}

	// Advance one revision past what was persisted so that every restored
	// entry's fast path (verifiedAt == current revision) is defeated on
	// its first post-reload request, forcing the full dependency walk
	// that discovers the unstarted input entries above rather than
	// returning a stale cached value straight away.
	atomic.StoreUint64(&e.revision, snap.Revision+1)

	return e, nil
}

func (e *Executor) revisionNow() uint64 {
	return atomic.LoadUint64(&e.revision)
}
