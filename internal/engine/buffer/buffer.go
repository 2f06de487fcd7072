package buffer

import (
	"errors"
	"fmt"
	"time"

	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
	"github.com/loomtext/loom/internal/event"
)

// Buffer is a replicated text document. Every replica holds its own
// Buffer; local edits return operations that, applied on peers in any
// causally valid order, converge all replicas to identical text.
//
// A Buffer assumes a single writer. Callers that share one across
// goroutines must serialize access themselves.
type Buffer struct {
	replica clock.ReplicaID
	lamport clock.Lamport
	nextSeq clock.Seq
	version clock.Version

	visible rope.Rope
	frags   []*fragment
	ops     []Operation

	history    *history
	selections map[SetID][]anchorRange

	bus   *event.Bus
	dirty bool
	now   func() time.Time
}

// Option configures a Buffer at construction time.
type Option func(*Buffer)

// WithGroupInterval sets the window within which consecutive transactions
// are merged into one undo entry. Zero disables grouping.
func WithGroupInterval(d time.Duration) Option {
	return func(b *Buffer) { b.history.groupInterval = d }
}

// WithMaxHistoryEntries caps the undo stack. Oldest entries are evicted
// once the cap is exceeded. Zero means unbounded.
func WithMaxHistoryEntries(n int) Option {
	return func(b *Buffer) { b.history.maxEntries = n }
}

// WithEventBus publishes Edited and Dirtied events on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(b *Buffer) { b.bus = bus }
}

// withClock overrides the wall clock used for transaction grouping.
func withClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}

// New creates a buffer for the given replica seeded with text. The seed
// text is treated as inserted before any replica existed, so every
// replica constructed with the same text starts from the same state.
func New(replica clock.ReplicaID, text string, opts ...Option) *Buffer {
	b := &Buffer{
		replica:    replica,
		nextSeq:    1,
		version:    clock.NewVersion(),
		visible:    rope.FromString(text),
		history:    newHistory(),
		selections: make(map[SetID][]anchorRange),
		now:        time.Now,
	}
	if len(text) > 0 {
		b.frags = []*fragment{{text: text}}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ReplicaID returns the id local operations are stamped with.
func (b *Buffer) ReplicaID() clock.ReplicaID { return b.replica }

// Version returns a copy of the buffer's version vector.
func (b *Buffer) Version() clock.Version { return b.version.Clone() }

// Len returns the buffer length in bytes.
func (b *Buffer) Len() rope.ByteOffset { return b.visible.Len() }

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() uint32 { return b.visible.LineCount() }

// Text returns the full buffer contents as a string.
func (b *Buffer) Text() string { return b.visible.String() }

// TextForRange returns the bytes in r as a string.
func (b *Buffer) TextForRange(r Range) string { return b.visible.Slice(r.Start, r.End) }

// Chars returns an iterator over the buffer's runes from the start.
func (b *Buffer) Chars() *rope.RuneIterator { return b.visible.RunesAt(0) }

// CharsAt returns an iterator over the buffer's runes starting at p.
func (b *Buffer) CharsAt(p rope.Point) *rope.RuneIterator {
	return b.visible.RunesAt(b.visible.PointToOffset(p))
}

// CharsForRange returns an iterator over the runes in r.
func (b *Buffer) CharsForRange(r Range) *rope.RuneIterator {
	return b.visible.RunesInRange(r.Start, r.End)
}

// Summary returns aggregate statistics for the whole buffer.
func (b *Buffer) Summary() rope.TextSummary { return b.visible.Summary() }

// SummaryForRange returns aggregate statistics for the bytes in r.
func (b *Buffer) SummaryForRange(r Range) rope.TextSummary {
	return b.visible.SliceSummary(r.Start, r.End)
}

// LineLen returns the length in bytes of row, excluding the newline.
func (b *Buffer) LineLen(row uint32) rope.ByteOffset { return b.visible.LineLen(row) }

// Line returns the text of row, excluding the newline.
func (b *Buffer) Line(row uint32) string { return b.visible.LineText(row) }

// OffsetToPoint converts a byte offset to a row and column.
func (b *Buffer) OffsetToPoint(offset rope.ByteOffset) rope.Point {
	return b.visible.OffsetToPoint(offset)
}

// PointToOffset converts a row and column to a byte offset. Columns past
// the end of the row clip to the row end.
func (b *Buffer) PointToOffset(p rope.Point) rope.ByteOffset {
	return b.visible.PointToOffset(p)
}

// ClipOffset snaps offset to the nearest UTF-8 boundary toward the start.
func (b *Buffer) ClipOffset(offset rope.ByteOffset) rope.ByteOffset {
	return b.visible.ClipOffset(offset)
}

// Snapshot returns the current contents as an immutable rope. Snapshots
// are cheap and stay valid across later edits.
func (b *Buffer) Snapshot() rope.Rope { return b.visible }

// IsDirty reports whether the buffer has changed since the last
// MarkClean.
func (b *Buffer) IsDirty() bool { return b.dirty }

// MarkClean resets the dirty flag, typically after a save.
func (b *Buffer) MarkClean() { b.dirty = false }

// Edit replaces every range in ranges with text and returns the
// operation to broadcast to peers. Ranges must be sorted ascending and
// non-overlapping; otherwise ErrInvalidRange is returned and the buffer
// is unchanged. Editing zero ranges is a no-op: the zero Operation is
// returned and no sequence number is consumed, no event published.
func (b *Buffer) Edit(ranges []Range, text string) (Operation, error) {
	if len(ranges) == 0 {
		return Operation{}, nil
	}
	edits := make([]Edit, len(ranges))
	for i, r := range ranges {
		edits[i] = Edit{Range: r, Text: text}
	}
	return b.editInternal(edits, true)
}

// editInternal performs a local multi-edit, optionally recording it in
// history. Undo and redo pass record=false and register their own
// inverse records.
func (b *Buffer) editInternal(edits []Edit, record bool) (Operation, error) {
	if err := validateEdits(edits, int(b.visible.Len()), b.visible.ClipOffset); err != nil {
		return Operation{}, err
	}

	// Capture replaced text before the fragment walk rewrites anything.
	var oldTexts []string
	if record {
		oldTexts = make([]string, len(edits))
		for i, e := range edits {
			oldTexts[i] = b.visible.Slice(e.Range.Start, e.Range.End)
		}
	}

	b.lamport++
	op := Operation{
		ID:      clock.OpID{Replica: b.replica, Seq: b.nextSeq},
		Version: b.version.Clone(),
		Lamport: b.lamport,
		Edits:   edits,
	}
	b.nextSeq++

	b.frags, b.visible = b.commit(&op)
	b.version.Observe(op.ID)
	b.ops = append(b.ops, op.Clone())

	if record {
		b.recordEdits(op.Edits, oldTexts)
	}
	b.didEdit(op.ID, true)
	return op.Clone(), nil
}

// commit runs the fragment walk for op and returns the new fragment list
// and visible rope.
func (b *Buffer) commit(op *Operation) ([]*fragment, rope.Rope) {
	frags, splices := applyEdits(b.frags, op)
	return frags, spliceRope(b.visible, splices)
}

// ApplyOp integrates one remote operation. Operations already applied
// are skipped without error. An operation whose causal context is not
// yet satisfied is rejected with ErrMissingDependency; the buffer does
// not queue it.
func (b *Buffer) ApplyOp(op Operation) error {
	applied, err := b.applyRemote(&op)
	if err != nil {
		return err
	}
	if applied {
		b.didEdit(op.ID, false)
	}
	return nil
}

// ApplyOps integrates a batch of remote operations. The batch may be in
// any order; operations that depend on later entries are retried until
// the batch makes no further progress, at which point the remainder is
// rejected with ErrMissingDependency.
func (b *Buffer) ApplyOps(ops []Operation) error {
	pending := make([]*Operation, len(ops))
	for i := range ops {
		pending[i] = &ops[i]
	}
	for len(pending) > 0 {
		progressed := false
		rest := pending[:0]
		for _, op := range pending {
			applied, err := b.applyRemote(op)
			if errors.Is(err, ErrMissingDependency) {
				rest = append(rest, op)
				continue
			}
			if err != nil {
				return err
			}
			progressed = true
			if applied {
				b.didEdit(op.ID, false)
			}
		}
		if !progressed {
			return fmt.Errorf("%w: %d operations unapplied", ErrMissingDependency, len(rest))
		}
		pending = rest
	}
	return nil
}

// applyRemote integrates op if it is new and causally ready. It reports
// whether the document changed.
func (b *Buffer) applyRemote(op *Operation) (bool, error) {
	seen := b.version.Seq(op.ID.Replica)
	if op.ID.Seq <= seen {
		return false, nil // duplicate delivery
	}
	if op.ID.Seq != seen+1 {
		return false, fmt.Errorf("%w: have seq %d from replica %d, got %d",
			ErrMissingDependency, seen, op.ID.Replica, op.ID.Seq)
	}
	if !b.version.Dominates(op.Version) {
		return false, fmt.Errorf("%w: version %v not satisfied", ErrMissingDependency, op.Version)
	}
	if err := validateEdits(op.Edits, lenAt(b.frags, op.Version), nil); err != nil {
		return false, err
	}

	b.frags, b.visible = b.commit(op)
	if op.Lamport > b.lamport {
		b.lamport = op.Lamport
	}
	b.version.Observe(op.ID)
	b.ops = append(b.ops, op.Clone())
	return true, nil
}

// EditsSince returns every operation not yet observed by v, ordered by
// (Lamport, Replica, Seq). Applying the result via ApplyOps brings a
// replica at version v up to date.
func (b *Buffer) EditsSince(v clock.Version) []Operation {
	var out []Operation
	for i := range b.ops {
		op := &b.ops[i]
		if op.ID.Seq > v.Seq(op.ID.Replica) {
			out = append(out, op.Clone())
		}
	}
	sortOperations(out)
	return out
}

// Operations returns the buffer's full operation log in application
// order.
func (b *Buffer) Operations() []Operation {
	out := make([]Operation, len(b.ops))
	for i := range b.ops {
		out[i] = b.ops[i].Clone()
	}
	return out
}

// didEdit updates dirty state and publishes events after a successful
// mutation.
func (b *Buffer) didEdit(id clock.OpID, local bool) {
	wasDirty := b.dirty
	b.dirty = true
	if b.bus == nil {
		return
	}
	b.bus.Publish(EditedEvent{OpID: id, Local: local})
	if !wasDirty {
		b.bus.Publish(DirtiedEvent{})
	}
}
