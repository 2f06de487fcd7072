package rope

// ByteOffset is an absolute byte position in the rope.
type ByteOffset int

// Point is a row/column position. Row and Column are 0-indexed; Column is in
// bytes from the start of the row.
type Point struct {
	Row    uint32
	Column uint32
}

// Compare returns -1, 0, or 1 ordering p against other in document order.
func (p Point) Compare(other Point) int {
	switch {
	case p.Row < other.Row:
		return -1
	case p.Row > other.Row:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// TextSummary holds aggregated metrics for a text span. Summaries form a
// monoid under Add, which lets any range's summary be assembled from
// O(log n) subtree summaries.
type TextSummary struct {
	// Bytes is the UTF-8 byte count of the span.
	Bytes ByteOffset

	// Chars is the rune count of the span.
	Chars uint64

	// Lines is the number of newline characters in the span.
	Lines uint32

	// FirstLineChars is the rune count of the span's first line, up to the
	// first newline or the end of the span.
	FirstLineChars uint32

	// LastLineChars is the rune count of the span's last line, after the
	// final newline.
	LastLineChars uint32

	// LongestRow is the row index, relative to the span start, of the widest
	// line in the span. Ties resolve to the earliest row.
	LongestRow uint32

	// LongestRowChars is the rune count of that widest line.
	LongestRowChars uint32
}

// Add combines two adjacent span summaries into the summary of their
// concatenation. The seam row is the sum of s's last line and other's first.
func (s TextSummary) Add(other TextSummary) TextSummary {
	if s.Bytes == 0 {
		return other
	}
	if other.Bytes == 0 {
		return s
	}

	out := TextSummary{
		Bytes:           s.Bytes + other.Bytes,
		Chars:           s.Chars + other.Chars,
		Lines:           s.Lines + other.Lines,
		FirstLineChars:  s.FirstLineChars,
		LongestRow:      s.LongestRow,
		LongestRowChars: s.LongestRowChars,
	}

	joined := s.LastLineChars + other.FirstLineChars
	if joined > out.LongestRowChars {
		out.LongestRow = s.Lines
		out.LongestRowChars = joined
	}
	if other.LongestRowChars > out.LongestRowChars {
		out.LongestRow = s.Lines + other.LongestRow
		out.LongestRowChars = other.LongestRowChars
	}

	if s.Lines == 0 {
		out.FirstLineChars = joined
	}
	if other.Lines == 0 {
		out.LastLineChars = joined
	} else {
		out.LastLineChars = other.LastLineChars
	}

	return out
}

// IsZero reports whether this is the identity summary.
func (s TextSummary) IsZero() bool {
	return s.Bytes == 0
}

// ComputeSummary calculates metrics for a string.
func ComputeSummary(text string) TextSummary {
	var sum TextSummary
	if len(text) == 0 {
		return sum
	}

	sum.Bytes = ByteOffset(len(text))

	var lineChars uint32
	sawNewline := false

	for _, r := range text {
		sum.Chars++
		if r == '\n' {
			if !sawNewline {
				sum.FirstLineChars = lineChars
				sawNewline = true
			}
			if lineChars > sum.LongestRowChars {
				sum.LongestRow = sum.Lines
				sum.LongestRowChars = lineChars
			}
			sum.Lines++
			lineChars = 0
		} else {
			lineChars++
		}
	}

	sum.LastLineChars = lineChars
	if !sawNewline {
		sum.FirstLineChars = lineChars
	}
	if lineChars > sum.LongestRowChars {
		sum.LongestRow = sum.Lines
		sum.LongestRowChars = lineChars
	}

	return sum
}

// isUTF8Start reports whether b begins a UTF-8 sequence. Continuation bytes
// are 10xxxxxx.
func isUTF8Start(b byte) bool {
	return b&0xC0 != 0x80
}
