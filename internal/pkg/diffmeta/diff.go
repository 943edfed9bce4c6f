// Package diffmeta turns two content snapshots into a line-level unified diff
// plus structural change metadata and a severity class. Extraction is
// best-effort pattern matching over diff lines, never a parse; malformed input
// degrades to empty metadata.
package diffmeta

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Content with fewer physical lines than this is treated as minified and
// reflowed to one statement per line before diffing.
const minReadableLines = 10

const diffContextLines = 3

// Result is the outcome of comparing two snapshots of one asset.
type Result struct {
	UnifiedDiff   string
	AddedLines    int
	RemovedLines  int
	SizeDelta     int
	ChangePercent int
	Reflowed      bool
	Metadata      Metadata
}

// Compute diffs old against new content. fileKind selects the stylesheet
// extraction rules when "css". The recorded diff is computed on reflowed text
// when either side looks minified; callers keep the original compact content
// for storage.
func Compute(oldContent, newContent, name, fileKind string) Result {
	res := Result{}

	oldSize := len(oldContent)
	newSize := len(newContent)
	delta := newSize - oldSize
	if delta < 0 {
		res.SizeDelta = -delta
	} else {
		res.SizeDelta = delta
	}
	if oldSize > 0 {
		res.ChangePercent = res.SizeDelta * 100 / oldSize
	} else {
		res.ChangePercent = 100
	}

	diffOld, diffNew := oldContent, newContent
	if looksMinified(oldContent) || looksMinified(newContent) {
		diffOld = Reflow(oldContent, fileKind)
		diffNew = Reflow(newContent, fileKind)
		res.Reflowed = true
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(diffOld),
		B:        difflib.SplitLines(diffNew),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  diffContextLines,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		// string writer cannot fail; keep the zero diff if it somehow does
		text = ""
	}
	res.UnifiedDiff = text

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			res.AddedLines++
		case strings.HasPrefix(line, "-"):
			res.RemovedLines++
		}
	}

	res.Metadata = Extract(lines, fileKind)
	return res
}

func looksMinified(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	return len(strings.Split(content, "\n")) < minReadableLines
}

// Reflow rewrites dense one-line content to one logical statement per line so
// line diffs become structurally meaningful. Purely mechanical: a newline
// after each statement terminator and block brace, string literals untouched
// only as far as the terminator characters do not appear inside them (accepted
// imprecision for a diagnostic diff).
func Reflow(content, fileKind string) string {
	if content == "" {
		return content
	}
	var b strings.Builder
	b.Grow(len(content) + len(content)/8)
	for i := 0; i < len(content); i++ {
		c := content[i]
		b.WriteByte(c)
		switch c {
		case ';', '{', '}':
			if i+1 < len(content) && content[i+1] == '\n' {
				continue
			}
			b.WriteByte('\n')
		}
	}
	out := b.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
