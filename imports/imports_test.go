package imports_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/imports"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/report"
)

// fakeStore maps path -> existence, for testing without touching disk.
type fakeStore struct {
	table  intern.Table
	exists map[string]bool
}

func (f *fakeStore) FileID(path string) source.FileID { return f.table.Intern(path) }
func (f *fakeStore) Path(id source.FileID) string      { return f.table.Value(id) }
func (f *fakeStore) Read(id source.FileID) (source.Contents, error) {
	if f.exists[f.table.Value(id)] {
		return source.Contents{}, nil
	}
	return source.Contents{}, errors.New("no such file")
}

func TestDirectResolvesExistingImport(t *testing.T) {
	symbols := &intern.Table{}
	fs := &fakeStore{exists: map[string]bool{"/root/util.ex": true}}
	file := fs.FileID("/root/main.ex")

	mod := &ast.Module{Items: []ast.Item{
		&ast.Import{Name: symbols.Intern("util")},
	}}

	deps, rep := imports.Direct(fs, file, mod, symbols)
	require.Empty(t, rep.Diagnostics)
	require.Len(t, deps, 1)
	assert.Equal(t, "/root/util.ex", fs.Path(deps[0]))
}

func TestDirectUnknownImportDiagnoses(t *testing.T) {
	symbols := &intern.Table{}
	fs := &fakeStore{exists: map[string]bool{}}
	file := fs.FileID("/root/main.ex")

	mod := &ast.Module{Items: []ast.Item{
		&ast.Import{Name: symbols.Intern("missing")},
	}}

	deps, rep := imports.Direct(fs, file, mod, symbols)
	assert.Empty(t, deps)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "UnknownImport", string(rep.Diagnostics[0].Kind))
	assert.Contains(t, rep.Diagnostics[0].Message, "missing")
}

func TestDirectDuplicateImportDiagnoses(t *testing.T) {
	symbols := &intern.Table{}
	fs := &fakeStore{exists: map[string]bool{"/root/util.ex": true}}
	file := fs.FileID("/root/main.ex")

	name := symbols.Intern("util")
	mod := &ast.Module{Items: []ast.Item{
		&ast.Import{Name: name},
		&ast.Import{Name: name},
	}}

	deps, rep := imports.Direct(fs, file, mod, symbols)
	assert.Len(t, deps, 1)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "DuplicateImport", string(rep.Diagnostics[0].Kind))
}

func TestTransitiveDetectsCycle(t *testing.T) {
	fs := &fakeStore{exists: map[string]bool{}}
	a := fs.FileID("/root/a.ex")
	b := fs.FileID("/root/b.ex")

	graph := map[source.FileID][]source.FileID{a: {b}, b: {a}}
	direct := func(f source.FileID) ([]source.FileID, *report.Report) {
		return graph[f], &report.Report{}
	}

	files, rep := imports.Transitive(a, direct, fs.Path)
	assert.Contains(t, files, a)
	assert.Contains(t, files, b)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "CyclicImport", string(rep.Diagnostics[0].Kind))
}

func TestTransitiveNoCycleVisitsAll(t *testing.T) {
	fs := &fakeStore{exists: map[string]bool{}}
	a := fs.FileID("/root/a.ex")
	b := fs.FileID("/root/b.ex")
	c := fs.FileID("/root/c.ex")

	graph := map[source.FileID][]source.FileID{a: {b, c}, b: {c}, c: nil}
	direct := func(f source.FileID) ([]source.FileID, *report.Report) {
		return graph[f], &report.Report{}
	}

	files, rep := imports.Transitive(a, direct, fs.Path)
	assert.Empty(t, rep.Diagnostics)
	assert.Len(t, files, 3)
}
