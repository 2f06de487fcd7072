package rope

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// FuzzFromString tests rope construction from arbitrary strings.
func FuzzFromString(f *testing.F) {
	f.Add("")
	f.Add("hello")
	f.Add("hello\nworld")
	f.Add("日本語のテキスト")
	f.Add(strings.Repeat("long line without breaks ", 50))

	f.Fuzz(func(t *testing.T, s string) {
		if !utf8.ValidString(s) {
			return
		}

		r := FromString(s)
		if r.String() != s {
			t.Errorf("content mismatch for %q", s)
		}
		if int(r.Len()) != len(s) {
			t.Errorf("Len() = %d, want %d", r.Len(), len(s))
		}
		if got, want := r.Summary(), ComputeSummary(s); got != want {
			t.Errorf("Summary() = %+v, want %+v", got, want)
		}
	})
}

// FuzzReplace tests splicing against the string reference implementation.
func FuzzReplace(f *testing.F) {
	f.Add("hello world", 0, 5, "goodbye")
	f.Add("", 0, 0, "x")
	f.Add("abc\ndef\n", 2, 6, "")
	f.Add("日本語", 0, 3, "英")

	f.Fuzz(func(t *testing.T, initial string, start, end int, text string) {
		if !utf8.ValidString(initial) || !utf8.ValidString(text) {
			return
		}
		if start < 0 || end < start || end > len(initial) {
			return
		}
		if !isUTF8Start(safeByte(initial, start)) || !isUTF8Start(safeByte(initial, end)) {
			return
		}

		got := FromString(initial).Replace(ByteOffset(start), ByteOffset(end), text)
		want := initial[:start] + text + initial[end:]
		if got.String() != want {
			t.Errorf("Replace(%d, %d, %q) on %q = %q, want %q",
				start, end, text, initial, got.String(), want)
		}
		if gotSum, wantSum := got.Summary(), ComputeSummary(want); gotSum != wantSum {
			t.Errorf("summary mismatch after replace: %+v vs %+v", gotSum, wantSum)
		}
	})
}

// FuzzOffsetToPoint tests offset/point conversions stay inverse.
func FuzzOffsetToPoint(f *testing.F) {
	f.Add("hello\nworld\n", 7)
	f.Add("", 0)
	f.Add("no newline", 4)

	f.Fuzz(func(t *testing.T, s string, offset int) {
		if !utf8.ValidString(s) {
			return
		}
		if offset < 0 || offset > len(s) {
			return
		}
		if !isUTF8Start(safeByte(s, offset)) {
			return
		}

		r := FromString(s)
		p := r.OffsetToPoint(ByteOffset(offset))
		if got := r.PointToOffset(p); got != ByteOffset(offset) {
			t.Errorf("PointToOffset(OffsetToPoint(%d)) = %d in %q", offset, got, s)
		}
	})
}

func safeByte(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}
