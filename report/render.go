package report

import (
	"strings"

	"github.com/rivo/uniseg"
)

// DisplayColumn returns the 1-based terminal column that byte offset
// falls at within line, accounting for multi-byte/zero-width runes via
// grapheme-cluster-aware width (tabs count as a single column; the CLI
// does not attempt tabstop alignment for diagnostics).
//
// No command of exc calls it; the plain "<file>:<line>: <message>" format
// required by §6 does not need it.
func DisplayColumn(line string, byteOffset int) int {
	if byteOffset <= 0 {
		return 1
	}
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	return uniseg.StringWidth(line[:byteOffset]) + 1
}

// TruncateForTerminal shortens s to at most width display columns,
// appending an ellipsis if truncated. No command of exc calls it.
func TruncateForTerminal(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var b strings.Builder
	col := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cw := uniseg.StringWidth(g.Str())
		if col+cw > width-1 {
			break
		}
		b.WriteString(g.Str())
		col += cw
	}
	b.WriteByte('\xe2')
	b.WriteByte('\x80')
	b.WriteByte('\xa6') // "…"
	return b.String()
}
