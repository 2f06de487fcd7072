// Package diff computes the edits that turn one text into another. The
// buffer uses it to reconcile with externally produced snapshots, such as a
// file reloaded from disk, without discarding operation history.
package diff

import "strings"

// Edit replaces the byte range [Start, End) of the old text with Text.
// Edits returned by Strings are sorted ascending and non-overlapping, in the
// old text's coordinate space.
type Edit struct {
	Start int
	End   int
	Text  string
}

// DefaultMaxLines bounds the Myers search. Inputs with more changed lines
// fall back to a single replacement of the changed region.
const DefaultMaxLines = 10000

// Strings computes line-based edits transforming old into new.
func Strings(oldText, newText string) []Edit {
	if oldText == newText {
		return nil
	}

	// Trim common prefix and suffix on line boundaries first; the Myers
	// search then only sees the changed region.
	prefix := commonPrefixLines(oldText, newText)
	oldMid := oldText[prefix:]
	newMid := newText[prefix:]
	suffix := commonSuffixLines(oldMid, newMid)
	oldMid = oldMid[:len(oldMid)-suffix]
	newMid = newMid[:len(newMid)-suffix]

	oldLines := splitLines(oldMid)
	newLines := splitLines(newMid)

	if len(oldLines)+len(newLines) > DefaultMaxLines {
		return []Edit{{Start: prefix, End: prefix + len(oldMid), Text: newMid}}
	}

	ops := myers(oldLines, newLines)
	return buildEdits(prefix, oldLines, newLines, ops)
}

// commonPrefixLines returns the byte length of the longest common prefix
// that ends on a line boundary (or equals one whole input).
func commonPrefixLines(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	if i == len(a) || i == len(b) {
		return i
	}
	// Back up to just after the previous newline.
	return strings.LastIndexByte(a[:i], '\n') + 1
}

// commonSuffixLines returns the byte length of the longest common suffix
// that starts at a line boundary.
func commonSuffixLines(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	if i == len(a) || i == len(b) {
		return i
	}
	idx := strings.IndexByte(a[len(a)-i:], '\n')
	if idx < 0 {
		return 0
	}
	return i - idx - 1
}

// splitLines splits text into lines, keeping the trailing newline on each
// line so concatenating the pieces reproduces the input exactly.
func splitLines(s string) []string {
	if len(s) == 0 {
		return nil
	}
	var lines []string
	for len(s) > 0 {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:idx+1])
		s = s[idx+1:]
	}
	return lines
}

// opKind is a single step in the edit script.
type opKind uint8

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

// myers runs the classic O(ND) greedy diff over lines, returning the edit
// script as a sequence of per-line ops.
func myers(a, b []string) []opKind {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}

	max := n + m
	v := make([]int, 2*max+1)
	offset := max
	var trace [][]int

	for d := 0; d <= max; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				return backtrack(trace, a, b, offset, d)
			}
		}
	}
	return nil
}

// backtrack walks the trace backwards, emitting the edit script forwards.
func backtrack(trace [][]int, a, b []string, offset, d int) []opKind {
	var rev []opKind
	x, y := len(a), len(b)

	for ; d > 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			rev = append(rev, opEqual)
			x--
			y--
		}
		if x > prevX {
			rev = append(rev, opDelete)
			x--
		} else if y > prevY {
			rev = append(rev, opInsert)
			y--
		}
	}
	for x > 0 {
		rev = append(rev, opEqual)
		x--
		y--
	}

	out := make([]opKind, len(rev))
	for i, op := range rev {
		out[len(rev)-1-i] = op
	}
	return out
}

// buildEdits converts a per-line edit script into byte-range edits, merging
// each run of deletions and insertions into one replacement.
func buildEdits(base int, a, b []string, ops []opKind) []Edit {
	var edits []Edit
	aOff := base
	ai, bi := 0, 0

	i := 0
	for i < len(ops) {
		switch ops[i] {
		case opEqual:
			aOff += len(a[ai])
			ai++
			bi++
			i++
		default:
			start := aOff
			var deleted int
			var inserted strings.Builder
			for i < len(ops) && ops[i] != opEqual {
				if ops[i] == opDelete {
					deleted += len(a[ai])
					ai++
				} else {
					inserted.WriteString(b[bi])
					bi++
				}
				i++
			}
			edits = append(edits, Edit{Start: start, End: start + deleted, Text: inserted.String()})
			aOff += deleted
		}
	}
	return edits
}
