package buffer

import (
	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/diff"
	"github.com/loomtext/loom/internal/engine/rope"
)

// Diff is a set of edits computed against a specific buffer version.
// Applying it on a buffer that has moved past BaseVersion would land the
// edits at stale offsets, so ApplyDiff refuses.
type Diff struct {
	BaseVersion clock.Version
	Edits       []Edit
}

// IsEmpty reports whether the diff changes anything.
func (d Diff) IsEmpty() bool { return len(d.Edits) == 0 }

// DiffAgainst computes the minimal line-level edits that turn the
// current contents into newText. The computation works on a snapshot, so
// it is safe to run on a copy while the buffer keeps editing; staleness
// is caught at apply time.
func (b *Buffer) DiffAgainst(newText string) Diff {
	raw := diff.Strings(b.visible.String(), newText)
	edits := make([]Edit, len(raw))
	for i, e := range raw {
		edits[i] = Edit{
			Range: Range{Start: rope.ByteOffset(e.Start), End: rope.ByteOffset(e.End)},
			Text:  e.Text,
		}
	}
	return Diff{BaseVersion: b.version.Clone(), Edits: edits}
}

// ApplyDiff applies a previously computed diff as a single local
// multi-edit and returns the resulting operation. If the buffer's
// version has changed since the diff was computed, ErrStaleDiff is
// returned and nothing is applied.
func (b *Buffer) ApplyDiff(d Diff) (Operation, error) {
	if !b.version.Equal(d.BaseVersion) {
		return Operation{}, ErrStaleDiff
	}
	if len(d.Edits) == 0 {
		return Operation{}, nil
	}
	edits := make([]Edit, len(d.Edits))
	copy(edits, d.Edits)
	return b.editInternal(edits, true)
}

// SetText replaces the whole contents via a minimal diff, preserving
// anchors and selections in the unchanged regions. This is the reload
// path: re-reading a file from disk should not invalidate every cursor.
func (b *Buffer) SetText(text string) (Operation, error) {
	return b.ApplyDiff(b.DiffAgainst(text))
}
