package rope

import "strings"

// Tree structure constants.
const (
	// MaxChildren is the maximum children per internal node before splitting.
	MaxChildren = 8

	// MaxChunksPerLeaf is the maximum chunks in a leaf node.
	MaxChunksPerLeaf = 4
)

// node is a node in the rope B+ tree. Leaf nodes (height == 0) hold text
// chunks; internal nodes hold child references. Nodes are immutable once
// published: edits build new nodes and share unaffected subtrees.
type node struct {
	height  uint8
	summary TextSummary

	// Internal node fields (height > 0).
	children       []*node
	childSummaries []TextSummary

	// Leaf node fields (height == 0).
	chunks []Chunk
}

func newLeaf() *node {
	return &node{height: 0}
}

func newLeafWithChunks(chunks []Chunk) *node {
	n := &node{height: 0, chunks: chunks}
	for _, c := range chunks {
		n.summary = n.summary.Add(c.Summary())
	}
	return n
}

func newInternal(children []*node) *node {
	if len(children) == 0 {
		return newLeaf()
	}

	summaries := make([]TextSummary, len(children))
	var total TextSummary
	for i, child := range children {
		summaries[i] = child.summary
		total = total.Add(child.summary)
	}

	return &node{
		height:         children[0].height + 1,
		summary:        total,
		children:       children,
		childSummaries: summaries,
	}
}

func (n *node) isLeaf() bool {
	return n.height == 0
}

func (n *node) len() ByteOffset {
	return n.summary.Bytes
}

// appendTo appends all text in this subtree to the builder.
func (n *node) appendTo(sb *strings.Builder) {
	if n.isLeaf() {
		for _, c := range n.chunks {
			sb.WriteString(c.String())
		}
		return
	}
	for _, child := range n.children {
		child.appendTo(sb)
	}
}

// appendRange appends text in the byte range [start, end) to the builder.
func (n *node) appendRange(sb *strings.Builder, start, end ByteOffset) {
	if start >= end {
		return
	}

	if n.isLeaf() {
		offset := ByteOffset(0)
		for _, c := range n.chunks {
			chunkEnd := offset + ByteOffset(c.Len())
			if chunkEnd <= start {
				offset = chunkEnd
				continue
			}
			if offset >= end {
				break
			}
			lo, hi := 0, c.Len()
			if start > offset {
				lo = int(start - offset)
			}
			if end < chunkEnd {
				hi = int(end - offset)
			}
			sb.WriteString(c.String()[lo:hi])
			offset = chunkEnd
		}
		return
	}

	offset := ByteOffset(0)
	for i, child := range n.children {
		childEnd := offset + n.childSummaries[i].Bytes
		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}
		lo, hi := ByteOffset(0), n.childSummaries[i].Bytes
		if start > offset {
			lo = start - offset
		}
		if end < childEnd {
			hi = end - offset
		}
		child.appendRange(sb, lo, hi)
		offset = childEnd
	}
}

// summaryRange computes the summary of the byte range [start, end). Subtrees
// fully inside the range contribute their cached summaries, so the work is
// proportional to the tree height plus the two boundary chunks.
func (n *node) summaryRange(start, end ByteOffset) TextSummary {
	if start >= end {
		return TextSummary{}
	}
	if start <= 0 && end >= n.len() {
		return n.summary
	}

	var sum TextSummary
	if n.isLeaf() {
		offset := ByteOffset(0)
		for _, c := range n.chunks {
			chunkEnd := offset + ByteOffset(c.Len())
			if chunkEnd <= start {
				offset = chunkEnd
				continue
			}
			if offset >= end {
				break
			}
			if start <= offset && end >= chunkEnd {
				sum = sum.Add(c.Summary())
			} else {
				lo, hi := 0, c.Len()
				if start > offset {
					lo = int(start - offset)
				}
				if end < chunkEnd {
					hi = int(end - offset)
				}
				sum = sum.Add(ComputeSummary(c.String()[lo:hi]))
			}
			offset = chunkEnd
		}
		return sum
	}

	offset := ByteOffset(0)
	for i, child := range n.children {
		childEnd := offset + n.childSummaries[i].Bytes
		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}
		if start <= offset && end >= childEnd {
			sum = sum.Add(n.childSummaries[i])
		} else {
			lo, hi := ByteOffset(0), n.childSummaries[i].Bytes
			if start > offset {
				lo = start - offset
			}
			if end < childEnd {
				hi = end - offset
			}
			sum = sum.Add(child.summaryRange(lo, hi))
		}
		offset = childEnd
	}
	return sum
}

// offsetOfRow returns the byte offset where the given row starts, seeking by
// the newline counts in subtree summaries.
func (n *node) offsetOfRow(row uint32) ByteOffset {
	if row == 0 {
		return 0
	}

	if n.isLeaf() {
		offset := ByteOffset(0)
		remaining := row
		for _, c := range n.chunks {
			cs := c.Summary()
			if cs.Lines >= remaining {
				data := c.String()
				var seen uint32
				for i := 0; i < len(data); i++ {
					if data[i] == '\n' {
						seen++
						if seen == remaining {
							return offset + ByteOffset(i) + 1
						}
					}
				}
			}
			remaining -= cs.Lines
			offset += ByteOffset(c.Len())
		}
		return offset
	}

	offset := ByteOffset(0)
	remaining := row
	for i, child := range n.children {
		cs := n.childSummaries[i]
		if cs.Lines >= remaining {
			return offset + child.offsetOfRow(remaining)
		}
		remaining -= cs.Lines
		offset += cs.Bytes
	}
	return offset
}

// split splits the node at a byte offset into [0, offset) and [offset, end).
func (n *node) split(offset ByteOffset) (*node, *node) {
	if offset <= 0 {
		return newLeaf(), n
	}
	if offset >= n.len() {
		return n, newLeaf()
	}
	if n.isLeaf() {
		return n.splitLeaf(offset)
	}
	return n.splitInternal(offset)
}

func (n *node) splitLeaf(offset ByteOffset) (*node, *node) {
	var left, right []Chunk
	current := ByteOffset(0)

	for _, c := range n.chunks {
		chunkLen := ByteOffset(c.Len())
		switch {
		case current+chunkLen <= offset:
			left = append(left, c)
		case current >= offset:
			right = append(right, c)
		default:
			l, r := c.Split(int(offset - current))
			if !l.IsEmpty() {
				left = append(left, l)
			}
			if !r.IsEmpty() {
				right = append(right, r)
			}
		}
		current += chunkLen
	}

	return newLeafWithChunks(left), newLeafWithChunks(right)
}

func (n *node) splitInternal(offset ByteOffset) (*node, *node) {
	var left, right []*node
	current := ByteOffset(0)

	for i, child := range n.children {
		childLen := n.childSummaries[i].Bytes
		switch {
		case current+childLen <= offset:
			left = append(left, child)
		case current >= offset:
			right = append(right, child)
		default:
			l, r := child.split(offset - current)
			if l.len() > 0 {
				left = append(left, l)
			}
			if r.len() > 0 {
				right = append(right, r)
			}
		}
		current += childLen
	}

	return buildFromNodes(left), buildFromNodes(right)
}

// buildFromNodes creates a balanced tree from nodes of equal height.
func buildFromNodes(nodes []*node) *node {
	if len(nodes) == 0 {
		return newLeaf()
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	if len(nodes) <= MaxChildren {
		return newInternal(nodes)
	}

	var parents []*node
	for i := 0; i < len(nodes); i += MaxChildren {
		end := i + MaxChildren
		if end > len(nodes) {
			end = len(nodes)
		}
		parents = append(parents, newInternal(nodes[i:end]))
	}
	return buildFromNodes(parents)
}

// concatNodes concatenates two subtrees, rebalancing as needed.
func concatNodes(left, right *node) *node {
	if left == nil || left.len() == 0 {
		if right == nil {
			return newLeaf()
		}
		return right
	}
	if right == nil || right.len() == 0 {
		return left
	}

	if left.isLeaf() && right.isLeaf() {
		return concatLeaves(left, right)
	}

	for left.height < right.height {
		left = newInternal([]*node{left})
	}
	for right.height < left.height {
		right = newInternal([]*node{right})
	}

	if left.isLeaf() {
		return concatLeaves(left, right)
	}

	all := make([]*node, 0, len(left.children)+len(right.children))
	all = append(all, left.children...)
	all = append(all, right.children...)
	return buildFromNodes(all)
}

func concatLeaves(left, right *node) *node {
	total := len(left.chunks) + len(right.chunks)
	if total <= MaxChunksPerLeaf {
		chunks := make([]Chunk, 0, total)
		chunks = append(chunks, left.chunks...)
		chunks = append(chunks, right.chunks...)
		return newLeafWithChunks(chunks)
	}
	return newInternal([]*node{left, right})
}
