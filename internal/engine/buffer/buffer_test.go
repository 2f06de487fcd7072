package buffer

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
	"github.com/loomtext/loom/internal/event"
)

func mustEdit(t *testing.T, b *Buffer, start, end rope.ByteOffset, text string) Operation {
	t.Helper()
	op, err := b.Edit([]Range{{Start: start, End: end}}, text)
	if err != nil {
		t.Fatalf("Edit(%d, %d, %q): %v", start, end, text, err)
	}
	return op
}

func TestNew(t *testing.T) {
	b := New(1, "hello\nworld")
	if got := b.Text(); got != "hello\nworld" {
		t.Errorf("Text() = %q, want %q", got, "hello\nworld")
	}
	if got := b.Len(); got != 11 {
		t.Errorf("Len() = %d, want 11", got)
	}
	if got := b.LineCount(); got != 2 {
		t.Errorf("LineCount() = %d, want 2", got)
	}
	if b.IsDirty() {
		t.Error("new buffer should be clean")
	}
}

func TestEdit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		start rope.ByteOffset
		end   rope.ByteOffset
		new   string
		want  string
	}{
		{"insert at start", "world", 0, 0, "hello ", "hello world"},
		{"insert at end", "hello", 5, 5, " world", "hello world"},
		{"insert middle", "held", 2, 2, "ra", "herald"},
		{"delete", "hello world", 5, 11, "", "hello"},
		{"replace", "hello world", 6, 11, "there", "hello there"},
		{"delete all", "hello", 0, 5, "", ""},
		{"empty buffer insert", "", 0, 0, "hi", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(1, tt.text)
			mustEdit(t, b, tt.start, tt.end, tt.new)
			if got := b.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
			if !b.IsDirty() {
				t.Error("buffer should be dirty after edit")
			}
		})
	}
}

func TestEditMultiRange(t *testing.T) {
	b := New(1, "aaa bbb ccc")
	op, err := b.Edit([]Range{{0, 3}, {4, 7}, {8, 11}}, "x")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got := b.Text(); got != "x x x" {
		t.Errorf("Text() = %q, want %q", got, "x x x")
	}
	if len(op.Edits) != 3 {
		t.Errorf("operation carries %d edits, want 3", len(op.Edits))
	}
}

func TestEditInvalidRanges(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		ranges []Range
	}{
		{"end before start", "hello world", []Range{{3, 1}}},
		{"past end", "hello world", []Range{{0, 99}}},
		{"negative start", "hello world", []Range{{-1, 0}}},
		{"overlapping", "hello world", []Range{{0, 4}, {2, 6}}},
		{"unsorted", "hello world", []Range{{5, 6}, {0, 1}}},
		{"start mid-rune", "a世b", []Range{{2, 4}}},
		{"end mid-rune", "a世b", []Range{{1, 3}}},
		{"caret mid-rune", "日本", []Range{{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(1, tt.text)
			v := b.Version()
			if _, err := b.Edit(tt.ranges, "x"); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("Edit = %v, want ErrInvalidRange", err)
			}
			if got := b.Text(); got != tt.text {
				t.Errorf("failed edit mutated buffer: %q", got)
			}
			if !b.Version().Equal(v) {
				t.Error("failed edit advanced the version")
			}
		})
	}
}

func TestEditNoRanges(t *testing.T) {
	bus := event.NewBus()
	var published int
	bus.Subscribe(func(any) { published++ })

	b := New(1, "hello", WithEventBus(bus))
	v := b.Version()

	op, err := b.Edit(nil, "x")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(op.Edits) != 0 || op.Lamport != 0 {
		t.Errorf("no-op edit minted an operation: %+v", op)
	}
	if !b.Version().Equal(v) {
		t.Error("no-op edit advanced the version")
	}
	if b.IsDirty() {
		t.Error("no-op edit dirtied the buffer")
	}
	if published != 0 {
		t.Errorf("no-op edit published %d events", published)
	}

	// The next real edit must use the first sequence number.
	real := mustEdit(t, b, 5, 5, "!")
	if real.ID.Seq != 1 {
		t.Errorf("first real edit got seq %d, want 1", real.ID.Seq)
	}
}

func TestSequentialInsertions(t *testing.T) {
	b := New(1, "abc")
	mustEdit(t, b, 3, 3, "def")
	mustEdit(t, b, 0, 0, "ghi")
	mustEdit(t, b, 5, 5, "jkl")
	if got := b.Text(); got != "ghiabjklcdef" {
		t.Errorf("Text() = %q, want %q", got, "ghiabjklcdef")
	}
}

func TestConcurrentDisjointEdits(t *testing.T) {
	a := New(1, "abcdef")
	b := New(2, "abcdef")
	c := New(3, "abcdef")

	opA := mustEdit(t, a, 1, 2, "12")
	opB := mustEdit(t, b, 3, 4, "34")
	opC := mustEdit(t, c, 5, 6, "56")

	for _, tc := range []struct {
		buf *Buffer
		ops []Operation
	}{
		{a, []Operation{opB, opC}},
		{b, []Operation{opC, opA}},
		{c, []Operation{opA, opB}},
	} {
		if err := tc.buf.ApplyOps(tc.ops); err != nil {
			t.Fatalf("ApplyOps on replica %d: %v", tc.buf.ReplicaID(), err)
		}
	}

	const want = "a12c34e56"
	for _, buf := range []*Buffer{a, b, c} {
		if got := buf.Text(); got != want {
			t.Errorf("replica %d: Text() = %q, want %q", buf.ReplicaID(), got, want)
		}
	}
}

func TestConcurrentSamePositionInsertions(t *testing.T) {
	// Insertions at one position settle into descending (lamport,
	// replica) order on every replica.
	a := New(1, "ac")
	b := New(2, "ac")

	opA := mustEdit(t, a, 1, 1, "X")
	opB := mustEdit(t, b, 1, 1, "Y")

	if err := a.ApplyOp(opB); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}
	if err := b.ApplyOp(opA); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}

	if a.Text() != b.Text() {
		t.Fatalf("replicas diverged: %q vs %q", a.Text(), b.Text())
	}
	if got := a.Text(); got != "aYXc" {
		t.Errorf("Text() = %q, want %q", got, "aYXc")
	}
}

func TestConcurrentDeleteAndInsertInside(t *testing.T) {
	// One replica deletes a region while another inserts inside it; the
	// insertion survives.
	a := New(1, "hello world")
	b := New(2, "hello world")

	opA := mustEdit(t, a, 0, 11, "")
	opB := mustEdit(t, b, 5, 5, ",")

	if err := a.ApplyOp(opB); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}
	if err := b.ApplyOp(opA); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}

	if a.Text() != b.Text() {
		t.Fatalf("replicas diverged: %q vs %q", a.Text(), b.Text())
	}
	if got := a.Text(); got != "," {
		t.Errorf("Text() = %q, want %q", got, ",")
	}
}

func TestConcurrentDoubleDelete(t *testing.T) {
	a := New(1, "abcdef")
	b := New(2, "abcdef")

	opA := mustEdit(t, a, 1, 4, "")
	opB := mustEdit(t, b, 2, 5, "")

	if err := a.ApplyOp(opB); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}
	if err := b.ApplyOp(opA); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}

	if a.Text() != b.Text() {
		t.Fatalf("replicas diverged: %q vs %q", a.Text(), b.Text())
	}
	if got := a.Text(); got != "af" {
		t.Errorf("Text() = %q, want %q", got, "af")
	}
}

func TestApplyOpDuplicateIgnored(t *testing.T) {
	a := New(1, "abc")
	b := New(2, "abc")

	op := mustEdit(t, a, 3, 3, "d")
	if err := b.ApplyOp(op); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}
	if err := b.ApplyOp(op); err != nil {
		t.Fatalf("duplicate ApplyOp: %v", err)
	}
	if got := b.Text(); got != "abcd" {
		t.Errorf("Text() = %q, want %q", got, "abcd")
	}
}

func TestApplyOpMissingDependency(t *testing.T) {
	a := New(1, "abc")
	b := New(2, "abc")

	_ = mustEdit(t, a, 3, 3, "d")
	op2 := mustEdit(t, a, 4, 4, "e")

	if err := b.ApplyOp(op2); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("ApplyOp = %v, want ErrMissingDependency", err)
	}
	if got := b.Text(); got != "abc" {
		t.Errorf("rejected op mutated buffer: %q", got)
	}
}

func TestApplyOpsReordersBatch(t *testing.T) {
	a := New(1, "abc")
	b := New(2, "abc")

	op1 := mustEdit(t, a, 3, 3, "d")
	op2 := mustEdit(t, a, 4, 4, "e")
	op3 := mustEdit(t, a, 5, 5, "f")

	if err := b.ApplyOps([]Operation{op3, op1, op2}); err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	if got := b.Text(); got != "abcdef" {
		t.Errorf("Text() = %q, want %q", got, "abcdef")
	}
}

func TestApplyOpsUnsatisfiableBatch(t *testing.T) {
	a := New(1, "abc")
	b := New(2, "abc")

	_ = mustEdit(t, a, 3, 3, "d")
	op2 := mustEdit(t, a, 4, 4, "e")

	if err := b.ApplyOps([]Operation{op2}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("ApplyOps = %v, want ErrMissingDependency", err)
	}
}

func TestEditsSince(t *testing.T) {
	a := New(1, "")
	before := a.Version()
	mustEdit(t, a, 0, 0, "one")
	mid := a.Version()
	mustEdit(t, a, 3, 3, " two")

	all := a.EditsSince(before)
	if len(all) != 2 {
		t.Fatalf("EditsSince(initial) returned %d ops, want 2", len(all))
	}
	tail := a.EditsSince(mid)
	if len(tail) != 1 {
		t.Fatalf("EditsSince(mid) returned %d ops, want 1", len(tail))
	}

	// A fresh replica catches up from the full history.
	b := New(2, "")
	if err := b.ApplyOps(all); err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	if b.Text() != a.Text() {
		t.Errorf("catch-up produced %q, want %q", b.Text(), a.Text())
	}
}

func TestEditsSinceOrdering(t *testing.T) {
	a := New(1, "x")
	b := New(2, "x")

	opA := mustEdit(t, a, 1, 1, "a")
	if err := b.ApplyOp(opA); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}
	opB := mustEdit(t, b, 2, 2, "b")
	if err := a.ApplyOp(opB); err != nil {
		t.Fatalf("ApplyOp: %v", err)
	}

	ops := a.EditsSince(clock.NewVersion())
	for i := 1; i < len(ops); i++ {
		prev, cur := ops[i-1], ops[i]
		if prev.Lamport > cur.Lamport {
			t.Errorf("ops out of lamport order: %d before %d", prev.Lamport, cur.Lamport)
		}
	}
}

func TestReadAccessors(t *testing.T) {
	b := New(1, "hello\nbig\nworld")

	if got := b.TextForRange(Range{6, 9}); got != "big" {
		t.Errorf("TextForRange = %q, want %q", got, "big")
	}
	if got := b.Line(1); got != "big" {
		t.Errorf("Line(1) = %q, want %q", got, "big")
	}
	if got := b.LineLen(2); got != 5 {
		t.Errorf("LineLen(2) = %d, want 5", got)
	}
	if got := b.OffsetToPoint(7); (got != rope.Point{Row: 1, Column: 1}) {
		t.Errorf("OffsetToPoint(7) = %+v, want {1 1}", got)
	}
	if got := b.PointToOffset(rope.Point{Row: 2, Column: 0}); got != 10 {
		t.Errorf("PointToOffset = %d, want 10", got)
	}

	var sb strings.Builder
	for it := b.CharsForRange(Range{6, 9}); it.Next(); {
		sb.WriteRune(it.Rune())
	}
	if sb.String() != "big" {
		t.Errorf("CharsForRange = %q, want %q", sb.String(), "big")
	}

	sum := b.SummaryForRange(Range{0, 9})
	if sum.Lines != 1 || sum.Bytes != 9 {
		t.Errorf("SummaryForRange = %+v", sum)
	}
}

func TestSnapshotUnaffectedByEdits(t *testing.T) {
	b := New(1, "before")
	snap := b.Snapshot()
	mustEdit(t, b, 0, 6, "after")
	if got := snap.String(); got != "before" {
		t.Errorf("snapshot changed to %q", got)
	}
	if got := b.Text(); got != "after" {
		t.Errorf("Text() = %q, want %q", got, "after")
	}
}

func TestMarkClean(t *testing.T) {
	b := New(1, "x")
	mustEdit(t, b, 1, 1, "y")
	if !b.IsDirty() {
		t.Fatal("expected dirty")
	}
	b.MarkClean()
	if b.IsDirty() {
		t.Fatal("expected clean after MarkClean")
	}
}

// randomEdit produces a random single-range edit valid for the buffer's
// current length.
func randomEdit(rng *rand.Rand, b *Buffer) (Range, string) {
	n := int(b.Len())
	start := 0
	if n > 0 {
		start = rng.Intn(n + 1)
	}
	end := start
	if n > start && rng.Intn(2) == 0 {
		end = start + rng.Intn(n-start+1)
	}
	var text string
	if rng.Intn(4) != 0 {
		letters := "abcdefghijklmnopqrstuvwxyz\n"
		k := 1 + rng.Intn(4)
		buf := make([]byte, k)
		for i := range buf {
			buf[i] = letters[rng.Intn(len(letters))]
		}
		text = string(buf)
	}
	return Range{Start: rope.ByteOffset(start), End: rope.ByteOffset(end)}, text
}

func TestConvergenceRandom(t *testing.T) {
	const (
		replicas = 3
		rounds   = 40
	)
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))

		bufs := make([]*Buffer, replicas)
		for i := range bufs {
			bufs[i] = New(clock.ReplicaID(i+1), "the quick brown fox\n")
		}

		for round := 0; round < rounds; round++ {
			i := rng.Intn(replicas)
			r, text := randomEdit(rng, bufs[i])
			if _, err := bufs[i].Edit([]Range{r}, text); err != nil {
				t.Fatalf("seed %d: Edit: %v", seed, err)
			}

			// Occasionally sync a random pair, delivering in shuffled
			// order with duplicates.
			if rng.Intn(3) == 0 {
				src, dst := rng.Intn(replicas), rng.Intn(replicas)
				if src != dst {
					ops := bufs[src].EditsSince(bufs[dst].Version())
					ops = append(ops, ops...)
					rng.Shuffle(len(ops), func(a, b int) { ops[a], ops[b] = ops[b], ops[a] })
					if err := bufs[dst].ApplyOps(ops); err != nil {
						t.Fatalf("seed %d: ApplyOps: %v", seed, err)
					}
				}
			}
		}

		// Final full sync in both directions until stable.
		for i := range bufs {
			for j := range bufs {
				if i == j {
					continue
				}
				ops := bufs[i].EditsSince(bufs[j].Version())
				if err := bufs[j].ApplyOps(ops); err != nil {
					t.Fatalf("seed %d: final sync: %v", seed, err)
				}
			}
		}

		want := bufs[0].Text()
		for i, b := range bufs {
			if got := b.Text(); got != want {
				t.Fatalf("seed %d: replica %d diverged:\n%q\nvs\n%q", seed, i+1, got, want)
			}
			if !b.Version().Equal(bufs[0].Version()) {
				t.Fatalf("seed %d: replica %d version mismatch", seed, i+1)
			}
		}
	}
}
