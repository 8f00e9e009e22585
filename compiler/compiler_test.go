package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exc-lang/exc/compiler"
	"github.com/exc-lang/exc/incremental"
	"github.com/exc-lang/exc/internal/source"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestScenarioB_NoDiagnostics(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.ex": "def x = 1 + 2\nprint x\n",
	})

	env := compiler.NewEnv()
	exec := incremental.New(4)
	rep, err := compiler.Compile(context.Background(), env, exec, filepath.Join(dir, "a.ex"))
	require.NoError(t, err)
	assert.Empty(t, rep.Diagnostics, "unexpected diagnostics: %v", rep.Lines())
}

func TestScenarioC_CyclicImportStillParsesBothFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.ex": "import b\ndef x = 1\n",
		"b.ex": "import a\ndef y = 2\n",
	})

	env := compiler.NewEnv()
	exec := incremental.New(4)
	rep, err := compiler.Compile(context.Background(), env, exec, filepath.Join(dir, "a.ex"))
	require.NoError(t, err)

	var cycles, parseErrs int
	for _, d := range rep.Diagnostics {
		if string(d.Kind) == "CyclicImport" {
			cycles++
		}
		if string(d.Kind) == "ParseError" {
			parseErrs++
		}
	}
	assert.Equal(t, 1, cycles, "diagnostics: %v", rep.Lines())
	assert.Equal(t, 0, parseErrs, "both files must still parse: %v", rep.Lines())
}

func TestScenarioD_NonTransitiveVisibilityUnresolvedName(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.ex": "import b\ndef x = c_only\n",
		"b.ex": "import c\ndef y = 1\n",
		"c.ex": "def c_only = 3\n",
	})

	env := compiler.NewEnv()
	exec := incremental.New(4)
	rep, err := compiler.Compile(context.Background(), env, exec, filepath.Join(dir, "a.ex"))
	require.NoError(t, err)

	var unresolved int
	for _, d := range rep.Diagnostics {
		if string(d.Kind) == "UnresolvedName" {
			unresolved++
		}
	}
	assert.Equal(t, 1, unresolved, "diagnostics: %v", rep.Lines())
}

func TestScenarioF_LambdaAppliedToIntInfersIntArrowInt(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.ex": "def f = fn x -> x + 1\nprint f 5\n",
	})

	env := compiler.NewEnv()
	exec := incremental.New(4)
	rep, err := compiler.Compile(context.Background(), env, exec, filepath.Join(dir, "a.ex"))
	require.NoError(t, err)
	assert.Empty(t, rep.Diagnostics, "unexpected diagnostics: %v", rep.Lines())
}

func TestScenarioE_EarlyCutoffSkipsTypeOfOnNoOpBodyChange(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.ex": "def x = 1 + 2\nprint x\n",
	})
	aPath := filepath.Join(dir, "a.ex")

	env := compiler.NewEnv()
	exec := incremental.New(4)

	var trace1 []string
	exec.Trace = func(depth int, url, verb string) { trace1 = append(trace1, verb+" "+url) }
	_, err := compiler.Compile(context.Background(), env, exec, aPath)
	require.NoError(t, err)
	require.True(t, containsComputeFor(trace1, "type-of", "x"))

	// Append a trailing blank line: the byte content changes, so parse must
	// re-run, but the def `x`'s body and therefore its inferred type does
	// not change, so type_of(x) must be cut off rather than recomputed.
	data, err := os.ReadFile(aPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(aPath, append(data, '\n'), 0o644))
	exec.Invalidate(source.URL(aPath))

	var trace2 []string
	exec.Trace = func(depth int, url, verb string) { trace2 = append(trace2, verb+" "+url) }
	_, err = compiler.Compile(context.Background(), env, exec, aPath)
	require.NoError(t, err)

	assert.True(t, containsComputeFor(trace2, "parse", ""), "expected parse to recompute: %v", trace2)
	assert.False(t, containsComputeFor(trace2, "type-of", "x"), "expected type_of(x) to be cut off: %v", trace2)
}

func TestPersistCacheReloadRereadsChangedFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.ex": "def x = 1 + 2\nprint x\n",
	})
	aPath := filepath.Join(dir, "a.ex")
	cachePath := filepath.Join(dir, "cache")

	env := compiler.NewEnv()
	exec := incremental.New(4)
	rep, err := compiler.Compile(context.Background(), env, exec, aPath)
	require.NoError(t, err)
	require.Empty(t, rep.Diagnostics)
	require.NoError(t, exec.Save(cachePath))

	// Edit the file with no running process to call Invalidate -- the
	// scenario the startup re-verification rule exists for.
	require.NoError(t, os.WriteFile(aPath, []byte("def x = 1 +\nprint x\n"), 0o644))

	reloaded, err := incremental.Load(cachePath, 4)
	require.NoError(t, err)

	var trace []string
	reloaded.Trace = func(depth int, url, verb string) { trace = append(trace, verb+" "+url) }

	rep, err = compiler.Compile(context.Background(), env, reloaded, aPath)
	require.NoError(t, err)

	assert.True(t, containsComputeFor(trace, "parse", ""), "parse must recompute against the freshly reloaded executor: %v", trace)

	var parseErrs int
	for _, d := range rep.Diagnostics {
		if string(d.Kind) == "ParseError" {
			parseErrs++
		}
	}
	assert.Equal(t, 1, parseErrs, "the edit made after Save must actually be observed: %v", rep.Lines())
}

func containsComputeFor(trace []string, urlPrefix, suffix string) bool {
	for _, line := range trace {
		if !strings.HasPrefix(line, "compute ") {
			continue
		}
		rest := strings.TrimPrefix(line, "compute ")
		if strings.Contains(rest, urlPrefix) && (suffix == "" || strings.HasSuffix(rest, suffix)) {
			return true
		}
	}
	return false
}

func TestScenarioA_ShippedExampleDiagnosticKinds(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"input.ex": strings.Join([]string{
			"import import_1",
			"import import_2",
			"",
			"def never_defined_user = never_defined",
			"def deep_user = defined_in_import_of_import",
		}, "\n") + "\n",
		"import_1.ex":   "def add10_conflicting = fn x -> x + 10\n",
		"import_2.ex":   "import import_2_1\nimport import_2_2\ndef add10_conflicting = fn x -> x + 10\n",
		"import_2_1.ex": "def bar broken\n",
		"import_2_2.ex": "def defined_in_import_of_import = 1\n",
	})

	env := compiler.NewEnv()
	exec := incremental.New(4)
	rep, err := compiler.Compile(context.Background(), env, exec, filepath.Join(dir, "input.ex"))
	require.NoError(t, err)

	kinds := map[string]bool{}
	for _, d := range rep.Diagnostics {
		kinds[string(d.Kind)] = true
	}
	assert.True(t, kinds["ParseError"], "diagnostics: %v", rep.Lines())
	assert.True(t, kinds["UnresolvedName"], "diagnostics: %v", rep.Lines())
	assert.True(t, kinds["AmbiguousName"], "diagnostics: %v", rep.Lines())
}
