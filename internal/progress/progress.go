// Package progress publishes the state of a parse run.
package progress

import (
	"fmt"
	"sync"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// order ranks the non-error states. A run moves forward through them and may
// skip saving.
var order = map[models.ProgressStatus]int{
	models.StatusIdle:       0,
	models.StatusReading:    1,
	models.StatusParsing:    2,
	models.StatusExtracting: 3,
	models.StatusSaving:     4,
	models.StatusComplete:   5,
}

// Reporter is the progress state machine of one run. Updates are published
// on a bounded channel without ever blocking the run: when the buffer is
// full the oldest pending update is dropped. The latest state is always
// available from Snapshot.
type Reporter struct {
	mu      sync.Mutex
	current models.ParserProgress
	updates chan models.ParserProgress
	dropped int
	closed  bool
}

// New returns a reporter in the idle state whose channel holds up to
// buffer pending updates.
func New(runID string, buffer int) *Reporter {
	if buffer < 1 {
		buffer = 1
	}
	return &Reporter{
		current: models.ParserProgress{RunID: runID, Status: models.StatusIdle},
		updates: make(chan models.ParserProgress, buffer),
	}
}

// Updates returns the channel of progress updates. It is closed after the
// terminal update has been published.
func (r *Reporter) Updates() <-chan models.ParserProgress {
	return r.updates
}

// Snapshot returns the latest state.
func (r *Reporter) Snapshot() models.ParserProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Dropped returns the number of updates discarded because the channel was full.
func (r *Reporter) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Update moves the run to status with the given progress. Progress never
// decreases. Transitions out of a terminal state or backwards are rejected.
func (r *Reporter) Update(status models.ProgressStatus, pct int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transition(status, pct, message, 0, 0)
}

// Page reports that done of total pages have been processed.
func (r *Reporter) Page(done, total int) error {
	pct := 20
	if total > 0 {
		pct = 20 + 60*done/total
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transition(models.StatusExtracting, pct,
		fmt.Sprintf("Processed page %d of %d", done, total), done, total)
}

// Complete moves the run to the complete state.
func (r *Reporter) Complete(message string) error {
	return r.Update(models.StatusComplete, 100, message)
}

// Fail moves the run to the error state. It is a no-op on a terminal run.
func (r *Reporter) Fail(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.Status.Terminal() {
		return
	}
	next := r.current
	next.Status = models.StatusError
	next.Message = message
	r.publish(next)
}

func (r *Reporter) transition(status models.ProgressStatus, pct int, message string, page, total int) error {
	cur := r.current.Status
	if cur.Terminal() {
		return fmt.Errorf("progress: run already %s", cur)
	}
	if status == models.StatusError {
		next := r.current
		next.Status, next.Message = status, message
		r.publish(next)
		return nil
	}
	to, ok := order[status]
	if !ok {
		return fmt.Errorf("progress: unknown status %q", status)
	}
	if to < order[cur] {
		return fmt.Errorf("progress: cannot move from %s to %s", cur, status)
	}

	next := models.ParserProgress{
		RunID:       r.current.RunID,
		Status:      status,
		Progress:    clamp(pct, r.current.Progress, 100),
		Message:     message,
		CurrentPage: page,
		TotalPages:  total,
	}
	r.publish(next)
	return nil
}

// publish records next and sends it without blocking. Callers hold r.mu.
func (r *Reporter) publish(next models.ParserProgress) {
	r.current = next
	if r.closed {
		return
	}
	for {
		select {
		case r.updates <- next:
			if next.Status.Terminal() {
				close(r.updates)
				r.closed = true
			}
			return
		default:
		}
		select {
		case <-r.updates:
			r.dropped++
		default:
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
