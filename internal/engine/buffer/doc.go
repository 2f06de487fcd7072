// Package buffer implements a conflict-free replicated text buffer.
//
// Each collaborator holds a replica identified by a clock.ReplicaID.
// Local edits return Operations; broadcasting those to peers and
// applying them with ApplyOp converges every replica to identical
// contents regardless of delivery order, as long as each operation's
// causal context arrives first. Deleted text is kept as tombstones, so
// positions can always be translated between versions; Anchors build on
// this to give stable positions that survive concurrent editing, and the
// undo history replays inverse edits as ordinary replicated operations.
//
// Buffers assume a single writer and do no internal locking.
package buffer
