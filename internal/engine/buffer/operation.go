package buffer

import (
	"sort"

	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
)

// Range is a half-open byte range [Start, End) in buffer coordinates.
type Range struct {
	Start rope.ByteOffset
	End   rope.ByteOffset
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int { return int(r.End - r.Start) }

// IsEmpty reports whether the range covers no bytes.
func (r Range) IsEmpty() bool { return r.Start == r.End }

// Edit replaces the bytes in Range with Text. An empty range is a pure
// insertion; empty text is a pure deletion.
type Edit struct {
	Range Range
	Text  string
}

// Operation is one replicated edit. Every local mutation produces exactly
// one Operation, which peers apply verbatim. Edit ranges are expressed in
// the coordinate space described by Version, sorted ascending and
// non-overlapping, so an operation means the same thing on every replica
// that has observed its causal context.
type Operation struct {
	ID      clock.OpID
	Version clock.Version
	Lamport clock.Lamport
	Edits   []Edit
}

// Timestamp returns the operation's logical timestamp, used to order
// concurrent insertions at the same position.
func (op *Operation) Timestamp() clock.Timestamp {
	return clock.Timestamp{Lamport: op.Lamport, Replica: op.ID.Replica}
}

// Clone returns a deep copy of the operation. The copy shares no state
// with the original, so callers may retain it across later mutations.
func (op *Operation) Clone() Operation {
	out := Operation{
		ID:      op.ID,
		Version: op.Version.Clone(),
		Lamport: op.Lamport,
	}
	out.Edits = make([]Edit, len(op.Edits))
	copy(out.Edits, op.Edits)
	return out
}

// validateEdits checks that edits are in bounds for a document of docLen
// bytes, sorted ascending, and non-overlapping. When clip is non-nil it
// additionally rejects offsets that do not fall on a UTF-8 boundary; the
// local edit path passes the visible rope's ClipOffset, while remote
// application passes nil because the offsets were validated against the
// originating replica's text, which is not materialized here.
func validateEdits(edits []Edit, docLen int, clip func(rope.ByteOffset) rope.ByteOffset) error {
	prevEnd := rope.ByteOffset(0)
	for _, e := range edits {
		r := e.Range
		if r.Start < 0 || r.End < r.Start || int(r.End) > docLen {
			return ErrInvalidRange
		}
		if r.Start < prevEnd {
			return ErrInvalidRange
		}
		if clip != nil && (clip(r.Start) != r.Start || clip(r.End) != r.End) {
			return ErrInvalidRange
		}
		prevEnd = r.End
	}
	return nil
}

// sortOperations orders operations by (Lamport, Replica, Seq). This is a
// total order consistent with causality, so replaying a sorted history on
// a fresh replica is always dependency-safe.
func sortOperations(ops []Operation) {
	sort.Slice(ops, func(i, j int) bool {
		a, b := &ops[i], &ops[j]
		if a.Lamport != b.Lamport {
			return a.Lamport < b.Lamport
		}
		if a.ID.Replica != b.ID.Replica {
			return a.ID.Replica < b.ID.Replica
		}
		return a.ID.Seq < b.ID.Seq
	})
}
