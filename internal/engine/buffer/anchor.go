package buffer

import (
	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
)

// Bias controls which side of an anchor newly inserted text lands on.
type Bias uint8

const (
	// Before keeps the anchor left of text inserted at its position.
	Before Bias = iota
	// After keeps the anchor right of text inserted at its position.
	After
)

func (b Bias) String() string {
	if b == Before {
		return "before"
	}
	return "after"
}

// Anchor is a stable position in a buffer. It records a byte offset in
// the document at a particular version; as concurrent edits land, the
// anchor keeps referring to the same logical spot. If the text the
// anchor was attached to is deleted, the anchor collapses to the
// deletion point.
type Anchor struct {
	Offset  rope.ByteOffset
	Bias    Bias
	Version clock.Version
}

// AnchorBefore returns an anchor at offset that stays left of insertions
// at its position.
func (b *Buffer) AnchorBefore(offset rope.ByteOffset) Anchor {
	return b.anchorAt(offset, Before)
}

// AnchorAfter returns an anchor at offset that stays right of insertions
// at its position.
func (b *Buffer) AnchorAfter(offset rope.ByteOffset) Anchor {
	return b.anchorAt(offset, After)
}

// AnchorBeforePoint returns a before-biased anchor at the given point.
func (b *Buffer) AnchorBeforePoint(p rope.Point) Anchor {
	return b.anchorAt(b.visible.PointToOffset(p), Before)
}

// AnchorAfterPoint returns an after-biased anchor at the given point.
func (b *Buffer) AnchorAfterPoint(p rope.Point) Anchor {
	return b.anchorAt(b.visible.PointToOffset(p), After)
}

func (b *Buffer) anchorAt(offset rope.ByteOffset, bias Bias) Anchor {
	offset = b.visible.ClipOffset(offset)
	return Anchor{Offset: offset, Bias: bias, Version: b.version.Clone()}
}

// ToOffset resolves the anchor against the buffer's current contents.
func (a Anchor) ToOffset(b *Buffer) rope.ByteOffset {
	return b.resolveAnchor(a)
}

// ToPoint resolves the anchor to a row and column in the current
// contents.
func (a Anchor) ToPoint(b *Buffer) rope.Point {
	return b.visible.OffsetToPoint(b.resolveAnchor(a))
}

// Cmp orders two anchors by their resolved position in b. Anchors at the
// same offset order by bias, Before first.
func (a Anchor) Cmp(other Anchor, b *Buffer) int {
	ao, bo := a.ToOffset(b), other.ToOffset(b)
	switch {
	case ao < bo:
		return -1
	case ao > bo:
		return 1
	case a.Bias == other.Bias:
		return 0
	case a.Bias == Before:
		return -1
	default:
		return 1
	}
}

// resolveAnchor walks the fragment list translating the anchor's offset
// from its creation version into current coordinates. vOff advances
// through bytes visible at the anchor's version, curOff through bytes
// visible now.
func (b *Buffer) resolveAnchor(a Anchor) rope.ByteOffset {
	target := int(a.Offset)
	if a.Bias == Before && target == 0 {
		return 0
	}

	vOff := 0
	curOff := 0
	for _, f := range b.frags {
		fv := f.visLenAt(a.Version)
		if fv > 0 {
			hit := vOff+fv >= target
			if a.Bias == After {
				hit = vOff+fv > target
			}
			if hit {
				if !f.visible() {
					// The anchored text was deleted; collapse to the
					// tombstone's position.
					return rope.ByteOffset(curOff)
				}
				return rope.ByteOffset(curOff + (target - vOff))
			}
		}
		vOff += fv
		curOff += f.visLen()
	}
	return rope.ByteOffset(curOff)
}
