package buffer

import "github.com/loomtext/loom/internal/engine/clock"

// EditedEvent is published after any successful mutation of the buffer
// contents, local or remote.
type EditedEvent struct {
	OpID  clock.OpID
	Local bool
}

// DirtiedEvent is published when a buffer transitions from clean to
// dirty. It is not republished for further edits until MarkClean.
type DirtiedEvent struct{}
