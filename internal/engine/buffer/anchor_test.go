package buffer

import (
	"testing"

	"github.com/loomtext/loom/internal/engine/rope"
)

func TestAnchorTracksLocalEdits(t *testing.T) {
	b := New(1, "hello world")
	a := b.AnchorBefore(6) // before "world"

	mustEdit(t, b, 0, 0, ">> ")
	if got := a.ToOffset(b); got != 9 {
		t.Errorf("anchor after prefix insert = %d, want 9", got)
	}

	mustEdit(t, b, 14, 19, "there")
	if got := a.ToOffset(b); got != 9 {
		t.Errorf("anchor after downstream edit = %d, want 9", got)
	}
}

func TestAnchorBias(t *testing.T) {
	b := New(1, "ab")
	before := b.AnchorBefore(1)
	after := b.AnchorAfter(1)

	mustEdit(t, b, 1, 1, "XX") // "aXXb"

	if got := before.ToOffset(b); got != 1 {
		t.Errorf("before-biased anchor = %d, want 1", got)
	}
	if got := after.ToOffset(b); got != 3 {
		t.Errorf("after-biased anchor = %d, want 3", got)
	}
}

func TestAnchorCollapsesOnDeletion(t *testing.T) {
	b := New(1, "hello cruel world")
	a := b.AnchorBefore(9) // inside "cruel"

	mustEdit(t, b, 6, 12, "") // "hello world"
	if got := a.ToOffset(b); got != 6 {
		t.Errorf("anchor after containing deletion = %d, want 6", got)
	}
}

func TestAnchorSurvivesConcurrentEdits(t *testing.T) {
	a := New(1, "hello world")
	b := New(2, "hello world")

	anchor := a.AnchorBefore(6)

	// A remote edit lands before the anchored position.
	op := mustEdit(t, b, 0, 5, "greetings")
	if err := a.ApplyOp(op); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}
	if got := a.Text(); got != "greetings world" {
		t.Fatalf("Text() = %q", got)
	}
	if got := anchor.ToOffset(a); got != 10 {
		t.Errorf("anchor = %d, want 10", got)
	}
	if got := a.TextForRange(Range{anchor.ToOffset(a), a.Len()}); got != "world" {
		t.Errorf("anchored text = %q, want %q", got, "world")
	}
}

func TestAnchorToPoint(t *testing.T) {
	b := New(1, "one\ntwo\nthree")
	a := b.AnchorBefore(8) // start of "three"

	mustEdit(t, b, 0, 0, "zero\n")
	want := rope.Point{Row: 3, Column: 0}
	if got := a.ToPoint(b); got != want {
		t.Errorf("ToPoint = %+v, want %+v", got, want)
	}
}

func TestAnchorCmp(t *testing.T) {
	b := New(1, "abcdef")
	early := b.AnchorBefore(1)
	late := b.AnchorBefore(4)
	atSameBefore := b.AnchorBefore(4)
	atSameAfter := b.AnchorAfter(4)

	if got := early.Cmp(late, b); got != -1 {
		t.Errorf("early.Cmp(late) = %d, want -1", got)
	}
	if got := late.Cmp(early, b); got != 1 {
		t.Errorf("late.Cmp(early) = %d, want 1", got)
	}
	if got := late.Cmp(atSameBefore, b); got != 0 {
		t.Errorf("same-position same-bias Cmp = %d, want 0", got)
	}
	if got := atSameBefore.Cmp(atSameAfter, b); got != -1 {
		t.Errorf("before vs after bias Cmp = %d, want -1", got)
	}
}

func TestAnchorAtDocumentEdges(t *testing.T) {
	b := New(1, "middle")
	start := b.AnchorBefore(0)
	end := b.AnchorAfter(6)

	mustEdit(t, b, 0, 0, "pre ")
	mustEdit(t, b, 10, 10, " post")

	if got := start.ToOffset(b); got != 0 {
		t.Errorf("start anchor = %d, want 0", got)
	}
	if got := end.ToOffset(b); got != b.Len() {
		t.Errorf("end anchor = %d, want %d", got, b.Len())
	}
}
