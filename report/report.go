// Package report defines the compiler's diagnostic representation: the
// common currency every pass uses to describe parse errors, unresolved
// names, type mismatches, and the like without aborting compilation.
package report

import (
	"encoding/gob"
	"fmt"
	"sort"
)

func init() {
	// Diagnostics are the only error type that crosses the incremental
	// cache's gob boundary (see incremental.Save/Load), so they must be
	// registered under their concrete type.
	gob.Register(&Diagnostic{})
}

// Kind classifies a Diagnostic, per the error kinds enumerated by the
// design.
type Kind string

const (
	KindParseError     Kind = "ParseError"
	KindUnknownImport  Kind = "UnknownImport"
	KindCyclicImport   Kind = "CyclicImport"
	KindDuplicateImport Kind = "DuplicateImport"
	KindAmbiguousName  Kind = "AmbiguousName"
	KindUnresolvedName Kind = "UnresolvedName"
	KindTypeMismatch   Kind = "TypeMismatch"
	KindOccursCheck    Kind = "OccursCheck"
	KindIOError        Kind = "IOError"
)

// Severity is how seriously a Diagnostic should be taken. This compiler
// core only ever emits errors, but the type exists so a future pass (e.g.
// unused-import warnings) has somewhere to plug in without changing the
// Diagnostic shape.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Span is a half-open byte range within a file, along with the line
// number it starts on (1-based), which is all the CLI output format
// (§6) needs.
type Span struct {
	File  string
	Start int
	End   int
	Line  int
}

// Diagnostic is one reported problem: a message, a kind, a severity, and
// the span (if any) it occurred at.
//
// Diagnostic implements error so it can be recorded directly via
// [incremental.Task.Error].
type Diagnostic struct {
	Span     Span
	Severity Severity
	Kind     Kind
	Message  string
}

// Error implements error.
func (d *Diagnostic) Error() string {
	if d.Span.File == "" {
		return d.Message
	}
	return fmt.Sprintf("%s:%d: %s", d.Span.File, d.Span.Line, d.Message)
}

// Newf constructs a Diagnostic at the given span.
func Newf(span Span, kind Kind, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Span:     span,
		Severity: Error,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Report is an ordered collection of diagnostics, accumulated across one
// or more queries.
type Report struct {
	Diagnostics []*Diagnostic
}

// Add appends one or more diagnostics, ignoring nils so callers can write
// `r.Add(maybeNil())` without an extra branch.
func (r *Report) Add(diags ...*Diagnostic) {
	for _, d := range diags {
		if d != nil {
			r.Diagnostics = append(r.Diagnostics, d)
		}
	}
}

// Sort canonicalizes diagnostic order: by file path, then by start
// offset, then by message text, matching §8's "deterministic order (file
// path, then span)" requirement.
func (r *Report) Sort() {
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		a, b := r.Diagnostics[i], r.Diagnostics[j]
		if a.Span.File != b.Span.File {
			return a.Span.File < b.Span.File
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.Message < b.Message
	})
}

// Lines renders each diagnostic as "<file>:<line>: <message>", the exact
// format §6 specifies for the CLI's "errors:" section.
func (r *Report) Lines() []string {
	out := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		out[i] = d.Error()
	}
	return out
}
