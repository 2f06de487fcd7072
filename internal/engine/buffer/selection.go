package buffer

import (
	"sort"

	"github.com/google/uuid"
)

// SetID identifies a selection set within one buffer.
type SetID = uuid.UUID

// anchorRange is a selection stored as anchors so it survives concurrent
// edits. Carets (empty ranges) use after bias on both ends so typing at
// the caret advances it; non-empty selections exclude insertions at
// their boundaries.
type anchorRange struct {
	start Anchor
	end   Anchor
}

// AddSelectionSet registers a set of selections and returns its id. Each
// range becomes a pair of anchors, so the selections track their text
// across local and remote edits.
func (b *Buffer) AddSelectionSet(ranges []Range) SetID {
	id := uuid.New()
	b.selections[id] = b.anchorRanges(ranges)
	return id
}

// UpdateSelectionSet replaces the selections in an existing set.
func (b *Buffer) UpdateSelectionSet(id SetID, ranges []Range) error {
	if _, ok := b.selections[id]; !ok {
		return ErrUnknownSelectionSet
	}
	b.selections[id] = b.anchorRanges(ranges)
	return nil
}

// RemoveSelectionSet deletes a selection set.
func (b *Buffer) RemoveSelectionSet(id SetID) error {
	if _, ok := b.selections[id]; !ok {
		return ErrUnknownSelectionSet
	}
	delete(b.selections, id)
	return nil
}

// SelectionRanges resolves a selection set against the current contents.
// Ranges are returned sorted by start offset.
func (b *Buffer) SelectionRanges(id SetID) ([]Range, error) {
	anchors, ok := b.selections[id]
	if !ok {
		return nil, ErrUnknownSelectionSet
	}
	return b.resolveRanges(anchors), nil
}

// SelectionSetIDs returns the ids of all registered selection sets.
func (b *Buffer) SelectionSetIDs() []SetID {
	ids := make([]SetID, 0, len(b.selections))
	for id := range b.selections {
		ids = append(ids, id)
	}
	return ids
}

func (b *Buffer) anchorRanges(ranges []Range) []anchorRange {
	out := make([]anchorRange, len(ranges))
	for i, r := range ranges {
		if r.IsEmpty() {
			a := b.AnchorAfter(r.Start)
			out[i] = anchorRange{start: a, end: a}
			continue
		}
		out[i] = anchorRange{
			start: b.AnchorAfter(r.Start),
			end:   b.AnchorBefore(r.End),
		}
	}
	return out
}

func (b *Buffer) resolveRanges(anchors []anchorRange) []Range {
	out := make([]Range, len(anchors))
	for i, ar := range anchors {
		start := ar.start.ToOffset(b)
		end := ar.end.ToOffset(b)
		if end < start {
			// Concurrent edits can fold a selection in on itself; it
			// degenerates to a caret.
			end = start
		}
		out[i] = Range{Start: start, End: end}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
