package rope

import "strings"

// Rope is an immutable chunked-sequence store for text. Operations return
// new Rope values; the original is never modified. Edits share unchanged
// subtrees with prior versions, so cloning a snapshot is free and two
// snapshots can be diffed without copying.
type Rope struct {
	root *node
}

// New creates an empty rope.
func New() Rope {
	return Rope{root: newLeaf()}
}

// FromString creates a rope from a string.
func FromString(s string) Rope {
	if len(s) == 0 {
		return New()
	}

	chunks := splitIntoChunks(s)
	var leaves []*node
	for i := 0; i < len(chunks); i += MaxChunksPerLeaf {
		end := i + MaxChunksPerLeaf
		if end > len(chunks) {
			end = len(chunks)
		}
		leaf := make([]Chunk, end-i)
		copy(leaf, chunks[i:end])
		leaves = append(leaves, newLeafWithChunks(leaf))
	}
	return Rope{root: buildFromNodes(leaves)}
}

// Len returns the total byte length.
func (r Rope) Len() ByteOffset {
	if r.root == nil {
		return 0
	}
	return r.root.len()
}

// IsEmpty reports whether the rope contains no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// LineCount returns the number of rows (newlines + 1).
func (r Rope) LineCount() uint32 {
	if r.root == nil {
		return 1
	}
	return r.root.summary.Lines + 1
}

// Summary returns the aggregated metrics for the entire rope.
func (r Rope) Summary() TextSummary {
	if r.root == nil {
		return TextSummary{}
	}
	return r.root.summary
}

// SliceSummary returns the aggregated metrics for the byte range
// [start, end) in O(log n). Offsets inside a multi-byte rune snap to the
// rune's start, so the char-based fields never count partial sequences
// and summaries stay additive at every split point.
func (r Rope) SliceSummary(start, end ByteOffset) TextSummary {
	if r.root == nil {
		return TextSummary{}
	}
	start = r.ClipOffset(start)
	end = r.ClipOffset(end)
	return r.root.summaryRange(start, end)
}

// String returns the full text. Use sparingly for large ropes.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(r.Len()))
	r.root.appendTo(&sb)
	return sb.String()
}

// Slice returns the text in the byte range [start, end).
func (r Rope) Slice(start, end ByteOffset) string {
	if r.root == nil {
		return ""
	}
	start = r.clamp(start)
	end = r.clamp(end)
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(end - start))
	r.root.appendRange(&sb, start, end)
	return sb.String()
}

// Replace replaces the byte range [start, end) with text, returning the new
// rope. A zero-length range is a pure insertion.
func (r Rope) Replace(start, end ByteOffset, text string) Rope {
	start = r.clamp(start)
	end = r.clamp(end)
	if start >= end && len(text) == 0 {
		return r
	}

	left, rest := r.split(start)
	_, right := rest.split(end - start)

	mid := left
	if len(text) > 0 {
		mid = mid.concat(FromString(text))
	}
	return mid.concat(right)
}

// Insert inserts text at the given byte offset.
func (r Rope) Insert(offset ByteOffset, text string) Rope {
	return r.Replace(offset, offset, text)
}

// Delete removes the byte range [start, end).
func (r Rope) Delete(start, end ByteOffset) Rope {
	return r.Replace(start, end, "")
}

// split splits the rope at offset into [0, offset) and [offset, end).
func (r Rope) split(offset ByteOffset) (Rope, Rope) {
	if r.root == nil || offset <= 0 {
		return New(), r
	}
	if offset >= r.Len() {
		return r, New()
	}
	left, right := r.root.split(offset)
	return Rope{root: left}, Rope{root: right}
}

// concat concatenates two ropes.
func (r Rope) concat(other Rope) Rope {
	if r.root == nil {
		return other
	}
	if other.root == nil {
		return r
	}
	return Rope{root: concatNodes(r.root, other.root)}
}

// LineStartOffset returns the byte offset where the given row starts.
// Rows past the end map to the rope length.
func (r Rope) LineStartOffset(row uint32) ByteOffset {
	if r.root == nil || row == 0 {
		return 0
	}
	if row >= r.LineCount() {
		return r.Len()
	}
	return r.root.offsetOfRow(row)
}

// LineEndOffset returns the byte offset of the end of the given row, not
// including the newline.
func (r Rope) LineEndOffset(row uint32) ByteOffset {
	if r.root == nil {
		return 0
	}
	if row+1 >= r.LineCount() {
		return r.Len()
	}
	return r.LineStartOffset(row+1) - 1
}

// LineLen returns the byte length of the given row, excluding the newline.
func (r Rope) LineLen(row uint32) ByteOffset {
	return r.LineEndOffset(row) - r.LineStartOffset(row)
}

// LineText returns the text of the given row, excluding the newline.
func (r Rope) LineText(row uint32) string {
	return r.Slice(r.LineStartOffset(row), r.LineEndOffset(row))
}

// OffsetToPoint converts a byte offset to a row/column position.
func (r Rope) OffsetToPoint(offset ByteOffset) Point {
	offset = r.clamp(offset)
	if offset == 0 {
		return Point{}
	}
	prefix := r.root.summaryRange(0, offset)
	var rowStart ByteOffset
	if prefix.Lines > 0 {
		rowStart = r.root.offsetOfRow(prefix.Lines)
	}
	return Point{Row: prefix.Lines, Column: uint32(offset - rowStart)}
}

// PointToOffset converts a row/column position to a byte offset. Columns
// past the end of the row clip to the row end.
func (r Rope) PointToOffset(p Point) ByteOffset {
	start := r.LineStartOffset(p.Row)
	end := r.LineEndOffset(p.Row)
	if ByteOffset(p.Column) >= end-start {
		return end
	}
	return start + ByteOffset(p.Column)
}

// ByteAt returns the byte at the given offset.
func (r Rope) ByteAt(offset ByteOffset) (byte, bool) {
	if r.root == nil || offset < 0 || offset >= r.Len() {
		return 0, false
	}

	n := r.root
	for !n.isLeaf() {
		for i, cs := range n.childSummaries {
			if offset < cs.Bytes {
				n = n.children[i]
				break
			}
			offset -= cs.Bytes
		}
	}
	for _, c := range n.chunks {
		if offset < ByteOffset(c.Len()) {
			return c.String()[offset], true
		}
		offset -= ByteOffset(c.Len())
	}
	return 0, false
}

// ClipOffset snaps an offset into range and back to a UTF-8 boundary.
func (r Rope) ClipOffset(offset ByteOffset) ByteOffset {
	offset = r.clamp(offset)
	for offset > 0 {
		b, ok := r.ByteAt(offset)
		if !ok || isUTF8Start(b) {
			break
		}
		offset--
	}
	return offset
}

func (r Rope) clamp(offset ByteOffset) ByteOffset {
	if offset < 0 {
		return 0
	}
	if l := r.Len(); offset > l {
		return l
	}
	return offset
}

// Equal reports whether two ropes contain the same text, comparing content
// rather than structure.
func (r Rope) Equal(other Rope) bool {
	if r.Len() != other.Len() {
		return false
	}
	return r.String() == other.String()
}
