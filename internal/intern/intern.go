// Package intern provides an interning table abstraction used to turn file
// paths and identifier text into small, stable, comparable integer ids.
package intern

import (
	"fmt"
	"strings"
	"sync"
)

// ID is an interned string in a particular [Table].
//
// IDs can be compared very cheaply, and the zero value always corresponds
// to the empty string.
type ID int32

// String implements [fmt.Stringer]. It does not recover the original
// string; use [Table.Value] for that.
func (id ID) String() string {
	if id == 0 {
		return `intern.ID("")`
	}
	return fmt.Sprintf("intern.ID(%d)", int32(id))
}

// Table is an interning table that converts strings into [ID]s and back.
//
// The zero value of Table is empty and ready to use. A Table may be used
// by multiple goroutines concurrently.
type Table struct {
	mu    sync.RWMutex
	index map[string]ID
	table []string
}

// Intern interns s into this table, returning the same ID for equal
// strings on every call.
func (t *Table) Intern(s string) ID {
	if s == "" {
		return 0
	}

	// Fast path: s has already been interned. Only a read lock is needed,
	// so concurrent lookups don't serialize on each other.
	t.mu.RLock()
	id, ok := t.index[s]
	t.mu.RUnlock()
	if ok {
		return id
	}

	// Tables are long-lived; clone so we don't pin whatever buffer s
	// happens to be a slice of.
	s = strings.Clone(s)

	t.mu.Lock()
	defer t.mu.Unlock()

	// Someone may have raced us between RUnlock and Lock.
	if id, ok := t.index[s]; ok {
		return id
	}

	t.table = append(t.table, s)
	id = ID(len(t.table)) // ID 0 is reserved for "".
	if id < 0 {
		panic(fmt.Sprintf("intern: %d interning IDs exhausted", len(t.table)))
	}

	if t.index == nil {
		t.index = make(map[string]ID)
	}
	t.index[s] = id
	return id
}

// Value converts id, previously produced by this table's [Table.Intern],
// back into its string.
//
// If id was produced by a different table, the result is unspecified.
func (t *Table) Value(id ID) string {
	if id == 0 {
		return ""
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table[int(id)-1]
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.table)
}
