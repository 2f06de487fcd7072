package rope

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// chunkFrame is a position in the tree traversal for chunk iteration.
type chunkFrame struct {
	node  *node
	child int
	chunk int
}

// ChunkIterator iterates over the chunks of a rope starting at a byte
// offset. Iterators are cheap to create, so restarting is just calling
// ChunksAt again.
type ChunkIterator struct {
	stack   []chunkFrame
	skip    int // bytes to skip within the first chunk
	chunk   string
	started bool
}

// ChunksAt returns an iterator over chunk text from the given offset to the
// end of the rope.
func (r Rope) ChunksAt(offset ByteOffset) *ChunkIterator {
	it := &ChunkIterator{}
	if r.root == nil {
		return it
	}
	offset = r.clamp(offset)
	if offset >= r.Len() {
		return it
	}

	// Descend to the leaf containing offset, recording the path.
	n := r.root
	for !n.isLeaf() {
		for i, cs := range n.childSummaries {
			if offset < cs.Bytes {
				it.stack = append(it.stack, chunkFrame{node: n, child: i})
				n = n.children[i]
				break
			}
			offset -= cs.Bytes
		}
	}
	chunkIdx := 0
	for i, c := range n.chunks {
		if offset < ByteOffset(c.Len()) {
			chunkIdx = i
			break
		}
		offset -= ByteOffset(c.Len())
	}
	it.stack = append(it.stack, chunkFrame{node: n, chunk: chunkIdx})
	it.skip = int(offset)
	return it
}

// Next advances to the next chunk, returning false when exhausted.
func (it *ChunkIterator) Next() bool {
	if !it.started {
		it.started = true
	} else if len(it.stack) > 0 {
		it.stack[len(it.stack)-1].chunk++
		it.skip = 0
	}

	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		n := frame.node

		if n.isLeaf() {
			if frame.chunk < len(n.chunks) {
				it.chunk = n.chunks[frame.chunk].String()[it.skip:]
				it.skip = 0
				return true
			}
		} else {
			frame.child++
			if frame.child < len(n.children) {
				child := n.children[frame.child]
				for !child.isLeaf() {
					it.stack = append(it.stack, chunkFrame{node: child, child: 0})
					child = child.children[0]
				}
				it.stack = append(it.stack, chunkFrame{node: child, chunk: 0})
				continue
			}
		}

		it.stack = it.stack[:len(it.stack)-1]
	}

	it.chunk = ""
	return false
}

// Text returns the current chunk's text.
func (it *ChunkIterator) Text() string {
	return it.chunk
}

// RuneIterator iterates over runes from a starting offset to a limit.
type RuneIterator struct {
	chunks    *ChunkIterator
	current   string
	remaining int // bytes left to yield; -1 means to the rope end
	r         rune
	size      int
}

// RunesAt returns an iterator over the runes from the byte offset to the
// end of the rope. The offset must fall on a UTF-8 boundary.
func (r Rope) RunesAt(offset ByteOffset) *RuneIterator {
	return &RuneIterator{chunks: r.ChunksAt(offset), remaining: -1}
}

// RunesInRange returns an iterator over the runes in [start, end). Both
// offsets must fall on UTF-8 boundaries.
func (r Rope) RunesInRange(start, end ByteOffset) *RuneIterator {
	start = r.clamp(start)
	end = r.clamp(end)
	n := int(end - start)
	if n < 0 {
		n = 0
	}
	return &RuneIterator{chunks: r.ChunksAt(start), remaining: n}
}

// Next advances to the next rune, returning false when exhausted.
func (it *RuneIterator) Next() bool {
	if it.remaining == 0 {
		it.r, it.size = 0, 0
		return false
	}
	it.current = it.current[it.size:]
	for len(it.current) == 0 {
		if !it.chunks.Next() {
			it.r, it.size = 0, 0
			return false
		}
		it.current = it.chunks.Text()
	}
	it.r, it.size = utf8.DecodeRuneInString(it.current)
	if it.remaining > 0 {
		it.remaining -= it.size
		if it.remaining < 0 {
			it.remaining = 0
		}
	}
	return true
}

// Rune returns the current rune.
func (it *RuneIterator) Rune() rune {
	return it.r
}

// GraphemeIterator iterates over grapheme clusters from a starting offset.
// Chunks never split a rune but may split a cluster, so pending text is
// buffered until uniseg confirms a cluster boundary.
type GraphemeIterator struct {
	chunks  *ChunkIterator
	pending string
	drained bool
	cluster string
}

// GraphemesAt returns an iterator over grapheme clusters from the byte
// offset to the end of the rope.
func (r Rope) GraphemesAt(offset ByteOffset) *GraphemeIterator {
	return &GraphemeIterator{chunks: r.ChunksAt(offset)}
}

// Next advances to the next grapheme cluster, returning false when exhausted.
func (it *GraphemeIterator) Next() bool {
	for {
		cluster, rest, _, _ := uniseg.FirstGraphemeClusterInString(it.pending, -1)

		// A cluster at the end of the pending text may continue into the
		// next chunk; pull more text before trusting the boundary.
		if (len(cluster) == 0 || len(rest) == 0) && !it.drained {
			if it.chunks.Next() {
				it.pending += it.chunks.Text()
				continue
			}
			it.drained = true
			continue
		}

		if len(cluster) == 0 {
			it.cluster = ""
			return false
		}
		it.cluster = cluster
		it.pending = rest
		return true
	}
}

// Cluster returns the current grapheme cluster.
func (it *GraphemeIterator) Cluster() string {
	return it.cluster
}
