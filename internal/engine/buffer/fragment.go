package buffer

import (
	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
)

// fragment is one contiguous run of inserted text. The buffer's document
// is a list of fragments in document order; deleting text never removes a
// fragment, it only records the deleting operation, so every historical
// version of the document can still be addressed.
type fragment struct {
	ins     clock.OpID      // operation that inserted this text
	time    clock.Timestamp // ordering key for concurrent insertions
	text    string
	deleted []clock.OpID // operations that deleted this text
}

// visible reports whether the fragment is part of the current document.
func (f *fragment) visible() bool { return len(f.deleted) == 0 }

// visibleAt reports whether the fragment was part of the document as seen
// by a replica at version v.
func (f *fragment) visibleAt(v clock.Version) bool {
	if !v.Observed(f.ins) {
		return false
	}
	for _, d := range f.deleted {
		if v.Observed(d) {
			return false
		}
	}
	return true
}

// visLen returns the fragment's length in the current document.
func (f *fragment) visLen() int {
	if f.visible() {
		return len(f.text)
	}
	return 0
}

// visLenAt returns the fragment's length in the document at version v.
func (f *fragment) visLenAt(v clock.Version) int {
	if f.visibleAt(v) {
		return len(f.text)
	}
	return 0
}

// split returns the fragment cut into [0, k) and [k, len) byte halves.
// Both halves share the original's insertion identity and deletions.
func (f *fragment) split(k int) (*fragment, *fragment) {
	left := &fragment{ins: f.ins, time: f.time, text: f.text[:k], deleted: f.deleted}
	right := &fragment{ins: f.ins, time: f.time, text: f.text[k:], deleted: f.deleted}
	return left, right
}

// withDeletion returns a copy of the fragment with op recorded as a
// deleting operation. Fragments are shared between snapshots of the list,
// so deletion never mutates in place.
func (f *fragment) withDeletion(op clock.OpID) *fragment {
	del := make([]clock.OpID, len(f.deleted)+1)
	copy(del, f.deleted)
	del[len(f.deleted)] = op
	return &fragment{ins: f.ins, time: f.time, text: f.text, deleted: del}
}

// ropeSplice is a pending change to the visible rope, expressed in
// pre-operation coordinates. Splices are collected in ascending order
// during a fragment walk and applied back to front.
type ropeSplice struct {
	start rope.ByteOffset
	end   rope.ByteOffset
	text  string
}

// lenAt returns the document length at version v, in bytes.
func lenAt(frags []*fragment, v clock.Version) int {
	total := 0
	for _, f := range frags {
		total += f.visLenAt(v)
	}
	return total
}

// applyEdits integrates op's edits into the fragment list and returns the
// new list plus the splices to perform on the current visible text. The
// input list is never mutated. Edit ranges are interpreted in the
// document as seen at op.Version, which must already be validated.
//
// Placement of concurrent insertions at the same position is what makes
// merging order-independent: before inserting, the walk skips past any
// fragments the operation could not have seen whose insertion timestamp
// exceeds the operation's own. Two replicas therefore always settle
// concurrent insertions into descending timestamp order, no matter which
// operation arrives first.
func applyEdits(frags []*fragment, op *Operation) ([]*fragment, []ropeSplice) {
	v := op.Version
	opTime := op.Timestamp()

	out := make([]*fragment, 0, len(frags)+len(op.Edits)*2)
	var splices []ropeSplice

	vOff := 0   // bytes consumed in op's coordinate space
	curOff := 0 // corresponding offset in the current visible text
	i := 0

	// next returns the upcoming fragment, honoring a pending right half
	// from an earlier split.
	var carry *fragment
	next := func() *fragment {
		if carry != nil {
			return carry
		}
		if i < len(frags) {
			return frags[i]
		}
		return nil
	}
	advance := func() {
		if carry != nil {
			carry = nil
			return
		}
		i++
	}

	for _, e := range op.Edits {
		// Copy fragments that lie wholly before the edit start.
		for vOff < int(e.Range.Start) {
			f := next()
			fv := f.visLenAt(v)
			if vOff+fv <= int(e.Range.Start) {
				out = append(out, f)
				vOff += fv
				curOff += f.visLen()
				advance()
				continue
			}
			// Edit start falls inside f.
			k := int(e.Range.Start) - vOff
			left, right := f.split(k)
			out = append(out, left)
			vOff += k
			curOff += left.visLen()
			advance()
			carry = right
		}

		// Settle the insertion point among fragments the operation did
		// not see. Fragments with a greater timestamp sort before the
		// new text; older ones after it.
		for {
			f := next()
			if f == nil || f.visLenAt(v) != 0 {
				break
			}
			if f.time.Compare(opTime) <= 0 {
				break
			}
			out = append(out, f)
			curOff += f.visLen()
			advance()
		}

		if len(e.Text) > 0 {
			out = append(out, &fragment{ins: op.ID, time: opTime, text: e.Text})
			splices = append(splices, ropeSplice{start: rope.ByteOffset(curOff), end: rope.ByteOffset(curOff), text: e.Text})
		}

		// Delete the covered region. Only fragments visible at the
		// operation's version are affected; concurrent insertions inside
		// the range survive.
		for vOff < int(e.Range.End) {
			f := next()
			fv := f.visLenAt(v)
			if fv == 0 {
				out = append(out, f)
				curOff += f.visLen()
				advance()
				continue
			}
			if vOff+fv <= int(e.Range.End) {
				if f.visible() {
					splices = append(splices, ropeSplice{
						start: rope.ByteOffset(curOff),
						end:   rope.ByteOffset(curOff + len(f.text)),
					})
					curOff += len(f.text)
				}
				out = append(out, f.withDeletion(op.ID))
				vOff += fv
				advance()
				continue
			}
			// Edit end falls inside f.
			k := int(e.Range.End) - vOff
			left, right := f.split(k)
			if f.visible() {
				splices = append(splices, ropeSplice{
					start: rope.ByteOffset(curOff),
					end:   rope.ByteOffset(curOff + k),
				})
				curOff += k
			}
			out = append(out, left.withDeletion(op.ID))
			vOff += k
			advance()
			carry = right
		}
	}

	// Copy the tail.
	if carry != nil {
		out = append(out, carry)
		carry = nil
	}
	for ; i < len(frags); i++ {
		out = append(out, frags[i])
	}
	return out, splices
}

// spliceRope applies splices, collected in ascending pre-operation
// coordinates, back to front so earlier offsets stay valid.
func spliceRope(r rope.Rope, splices []ropeSplice) rope.Rope {
	for i := len(splices) - 1; i >= 0; i-- {
		s := splices[i]
		r = r.Replace(s.start, s.end, s.text)
	}
	return r
}
