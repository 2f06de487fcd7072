// Package rope implements the chunked sequence store underlying the
// replicated buffer: an immutable B+ tree of bounded text chunks.
//
// Every subtree carries a TextSummary aggregating byte length, newline
// count, first/last line widths, and the widest row, so splicing a range,
// materializing a slice, and summarizing a range are all O(log n).
//
// Ropes are persistent: an edit builds a new root that shares every
// unaffected subtree with the previous version, making whole-buffer
// snapshots free and safe to read concurrently.
package rope
