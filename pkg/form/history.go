package form

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Snapshot is a captured FormState kept by the History.
type Snapshot struct {
	ID      string
	TakenAt time.Time
	State   *model.FormState
}

// History keeps the undo and redo stacks of one instance. Checkpoints are
// explicit: nothing is recorded unless Push is called.
type History struct {
	mu     sync.Mutex
	past   []Snapshot
	future []Snapshot
	limit  int
	now    func() time.Time
}

// NewHistory constructs an empty history. A positive limit caps the number of
// undo entries; the oldest entries are dropped first.
func NewHistory(limit int) *History {
	return &History{limit: limit, now: time.Now}
}

// Push records state as a checkpoint and clears the redo stack.
func (h *History) Push(state *model.FormState) Snapshot {
	snap := h.capture(state)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.past = append(h.past, snap)
	if h.limit > 0 && len(h.past) > h.limit {
		h.past = append([]Snapshot(nil), h.past[len(h.past)-h.limit:]...)
	}
	h.future = nil
	return snap
}

// Undo returns the most recent checkpoint and records current for Redo. It
// reports false, leaving the stacks untouched, when there is nothing to undo.
func (h *History) Undo(current *model.FormState) (*model.FormState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.past) == 0 {
		return current, false
	}
	last := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, h.capture(current))
	return last.State, true
}

// Redo is the mirror of Undo.
func (h *History) Redo(current *model.FormState) (*model.FormState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.future) == 0 {
		return current, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, h.capture(current))
	return next.State, true
}

// Len reports the sizes of the undo and redo stacks.
func (h *History) Len() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// Past returns the undo stack, oldest first.
func (h *History) Past() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Snapshot(nil), h.past...)
}

// Release drops both stacks.
func (h *History) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}

func (h *History) capture(state *model.FormState) Snapshot {
	return Snapshot{
		ID:      uuid.Must(uuid.NewV7()).String(),
		TakenAt: h.now(),
		State:   state,
	}
}
