package buffer

import (
	"time"

	"github.com/google/uuid"
	"github.com/loomtext/loom/internal/engine/rope"
)

// Transaction groups edits into one undo entry. Transactions are opened
// explicitly with StartTransaction or created implicitly around a single
// Edit call.
type Transaction struct {
	ID    uuid.UUID
	start time.Time
	end   time.Time

	// edits holds one record per edit, in application order. Each record
	// brackets the edit's current text with anchors and carries the text
	// to swap back in when the transaction is toggled.
	edits []editRecord

	// Selection states are captured as resolved ranges, not anchors: an
	// undone edit's text is re-inserted as new fragments, so anchors
	// into the captured state would collapse with their tombstones.
	selectionsBefore map[SetID][]Range
	selectionsAfter  map[SetID][]Range

	reverted bool
}

// editRecord tracks one edit's footprint through later changes. The
// anchors bracket the text the edit currently owns; other is the text a
// toggle swaps in. After each toggle the record is rebuilt, so undo and
// redo share one mechanism.
type editRecord struct {
	start Anchor
	end   Anchor
	other string
}

type history struct {
	undo []*Transaction
	redo []*Transaction
	byID map[uuid.UUID]*Transaction

	groupInterval time.Duration
	maxEntries    int

	depth int
	open  *Transaction
}

func newHistory() *history {
	return &history{byID: make(map[uuid.UUID]*Transaction)}
}

// StartTransaction opens a transaction. Nested calls are counted and
// only the outermost pair delimits the undo entry. Selection sets named
// here have their state captured for restoration on undo.
func (b *Buffer) StartTransaction(sets ...SetID) error {
	return b.StartTransactionAt(b.now(), sets...)
}

// StartTransactionAt is StartTransaction with an explicit timestamp,
// which the grouping logic compares against the previous transaction's
// end time.
func (b *Buffer) StartTransactionAt(t time.Time, sets ...SetID) error {
	h := b.history
	if h.depth > 0 {
		h.depth++
		return nil
	}
	before, err := b.captureSelections(sets)
	if err != nil {
		return err
	}
	h.depth = 1
	h.open = &Transaction{ID: uuid.New(), start: t, selectionsBefore: before}
	return nil
}

// EndTransaction closes the innermost open transaction. When the
// outermost transaction closes it is committed to the undo stack and its
// id returned; a transaction that recorded no edits is discarded and
// uuid.Nil returned. Selection sets named here are captured for
// restoration on redo.
func (b *Buffer) EndTransaction(sets ...SetID) (uuid.UUID, error) {
	return b.EndTransactionAt(b.now(), sets...)
}

// EndTransactionAt is EndTransaction with an explicit timestamp.
func (b *Buffer) EndTransactionAt(t time.Time, sets ...SetID) (uuid.UUID, error) {
	h := b.history
	if h.depth == 0 {
		return uuid.Nil, ErrNoTransaction
	}
	if h.depth > 1 {
		h.depth--
		return uuid.Nil, nil
	}
	// Capture before popping: on an unknown set id the transaction stays
	// open and its edits stay undoable, mirroring how StartTransactionAt
	// validates before incrementing the depth.
	after, err := b.captureSelections(sets)
	if err != nil {
		return uuid.Nil, err
	}
	h.depth = 0
	txn := h.open
	h.open = nil
	if len(txn.edits) == 0 {
		return uuid.Nil, nil
	}
	txn.end = t
	txn.selectionsAfter = after
	return b.pushTransaction(txn).ID, nil
}

// recordEdits registers a just-applied local multi-edit in history.
// Anchors are created against the post-edit contents, so the new ranges
// are the old ones shifted by the preceding edits' size deltas.
func (b *Buffer) recordEdits(edits []Edit, oldTexts []string) {
	recs := make([]editRecord, len(edits))
	delta := 0
	for i, e := range edits {
		ns := int(e.Range.Start) + delta
		ne := ns + len(e.Text)
		recs[i] = editRecord{
			start: b.AnchorAfter(rope.ByteOffset(ns)),
			end:   b.AnchorBefore(rope.ByteOffset(ne)),
			other: oldTexts[i],
		}
		delta += len(e.Text) - e.Range.Len()
	}

	h := b.history
	if h.open != nil {
		h.open.edits = append(h.open.edits, recs...)
		return
	}
	now := b.now()
	txn := &Transaction{ID: uuid.New(), start: now, end: now, edits: recs}
	b.pushTransaction(txn)
}

// pushTransaction commits txn to the undo stack, merging it into the
// previous entry when both fall within the group interval. It returns
// the entry that now holds txn's edits.
func (b *Buffer) pushTransaction(txn *Transaction) *Transaction {
	h := b.history
	if h.groupInterval > 0 && len(h.redo) == 0 && len(h.undo) > 0 {
		last := h.undo[len(h.undo)-1]
		if !last.reverted && txn.start.Sub(last.end) <= h.groupInterval {
			last.edits = append(last.edits, txn.edits...)
			last.end = txn.end
			if txn.selectionsAfter != nil {
				last.selectionsAfter = txn.selectionsAfter
			}
			return last
		}
	}

	h.undo = append(h.undo, txn)
	h.byID[txn.ID] = txn
	for _, r := range h.redo {
		delete(h.byID, r.ID)
	}
	h.redo = h.redo[:0]

	if h.maxEntries > 0 && len(h.undo) > h.maxEntries {
		evict := h.undo[0]
		delete(h.byID, evict.ID)
		h.undo = append(h.undo[:0], h.undo[1:]...)
	}
	return txn
}

// Undo reverts the most recent transaction and returns the operations to
// broadcast to peers. Undo is an ordinary local edit as far as
// replication is concerned.
func (b *Buffer) Undo() ([]Operation, error) {
	if b.history.depth > 0 {
		return nil, ErrTransactionOpen
	}
	h := b.history
	for len(h.undo) > 0 {
		txn := h.undo[len(h.undo)-1]
		h.undo = h.undo[:len(h.undo)-1]
		h.redo = append(h.redo, txn)
		if txn.reverted {
			continue // already toggled via UndoOrRedo
		}
		ops := b.toggleTransaction(txn)
		b.restoreSelections(txn.selectionsBefore)
		return ops, nil
	}
	return nil, ErrNothingToUndo
}

// Redo reapplies the most recently undone transaction.
func (b *Buffer) Redo() ([]Operation, error) {
	if b.history.depth > 0 {
		return nil, ErrTransactionOpen
	}
	h := b.history
	for len(h.redo) > 0 {
		txn := h.redo[len(h.redo)-1]
		h.redo = h.redo[:len(h.redo)-1]
		h.undo = append(h.undo, txn)
		if !txn.reverted {
			continue
		}
		ops := b.toggleTransaction(txn)
		b.restoreSelections(txn.selectionsAfter)
		return ops, nil
	}
	return nil, ErrNothingToRedo
}

// UndoOrRedo toggles one transaction by id, reverting it if applied and
// reapplying it if reverted, without disturbing the undo and redo
// stacks.
func (b *Buffer) UndoOrRedo(id uuid.UUID) ([]Operation, error) {
	if b.history.depth > 0 {
		return nil, ErrTransactionOpen
	}
	txn, ok := b.history.byID[id]
	if !ok {
		return nil, ErrUnknownTransaction
	}
	ops := b.toggleTransaction(txn)
	if txn.reverted {
		b.restoreSelections(txn.selectionsBefore)
	} else {
		b.restoreSelections(txn.selectionsAfter)
	}
	return ops, nil
}

// toggleTransaction swaps every record's bracketed text with its stored
// counterpart, most recent edit first, and rebuilds the records so the
// next toggle goes the other way. Each swap is its own replicated
// operation.
func (b *Buffer) toggleTransaction(txn *Transaction) []Operation {
	ops := make([]Operation, 0, len(txn.edits))
	recs := make([]editRecord, len(txn.edits))
	for i := len(txn.edits) - 1; i >= 0; i-- {
		rec := txn.edits[i]
		s := rec.start.ToOffset(b)
		e := rec.end.ToOffset(b)
		if e < s {
			e = s
		}
		if s == e && len(rec.other) == 0 {
			recs[i] = editRecord{start: b.AnchorAfter(s), end: b.AnchorBefore(s)}
			continue
		}
		cur := b.visible.Slice(s, e)
		op, err := b.editInternal([]Edit{{Range: Range{Start: s, End: e}, Text: rec.other}}, false)
		if err != nil {
			// Anchors always resolve in bounds; a failure here means the
			// record itself is corrupt, so drop it.
			recs[i] = rec
			continue
		}
		recs[i] = editRecord{
			start: b.AnchorAfter(s),
			end:   b.AnchorBefore(s + rope.ByteOffset(len(rec.other))),
			other: cur,
		}
		ops = append(ops, op)
	}
	txn.edits = recs
	txn.reverted = !txn.reverted
	return ops
}

func (b *Buffer) captureSelections(sets []SetID) (map[SetID][]Range, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	out := make(map[SetID][]Range, len(sets))
	for _, id := range sets {
		anchors, ok := b.selections[id]
		if !ok {
			return nil, ErrUnknownSelectionSet
		}
		out[id] = b.resolveRanges(anchors)
	}
	return out, nil
}

func (b *Buffer) restoreSelections(m map[SetID][]Range) {
	for id, ranges := range m {
		if _, ok := b.selections[id]; ok {
			b.selections[id] = b.anchorRanges(ranges)
		}
	}
}
