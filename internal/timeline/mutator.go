package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// MinDurationMin is the floor enforced on every edited duration.
const MinDurationMin = 5

// FieldPatch carries a single-field edit. Nil fields are left untouched.
type FieldPatch struct {
	Title       *string
	DurationMin *int
	Notes       *string
	AssignedTo  *[]string
	IsHighlight *bool
}

// Mutator applies incremental edits to an existing ordered timeline. Every
// operation returns a new slice; the input is never modified. Recalculation
// follows the builder's forward pass: pinned ceremonies keep their explicit
// time, everything else runs sequentially with category buffers.
type Mutator struct {
	now func() time.Time
}

// NewMutator creates a mutator.
func NewMutator() *Mutator {
	return &Mutator{now: time.Now}
}

// WithClock overrides the mutator's clock. Used by tests.
func (m *Mutator) WithClock(now func() time.Time) *Mutator {
	m.now = now
	return m
}

// Reorder moves the activity at from to position to and recalculates times.
// Durations never change on reorder, only the computed start/end times.
func (m *Mutator) Reorder(tl []models.Activity, from, to int) ([]models.Activity, error) {
	if from < 0 || from >= len(tl) {
		return nil, fmt.Errorf("reorder: from index %d out of range [0,%d)", from, len(tl))
	}
	if to < 0 || to >= len(tl) {
		return nil, fmt.Errorf("reorder: to index %d out of range [0,%d)", to, len(tl))
	}

	windowStart := earliestStart(tl)

	next := make([]models.Activity, 0, len(tl))
	next = append(next, tl[:from]...)
	next = append(next, tl[from+1:]...)
	moved := tl[from]
	next = append(next[:to], append([]models.Activity{moved}, next[to:]...)...)

	recalculate(next, windowStart)
	return next, nil
}

// Insert adds an activity at the position hint (out-of-range hints append)
// and recalculates. The new activity's duration is clamped to the floor.
// Inserting into an empty timeline starts the day at the activity's pinned
// or declared time, falling back to the clock like the builder's anchor
// default.
func (m *Mutator) Insert(tl []models.Activity, a models.Activity, at int) []models.Activity {
	if a.DurationMin < MinDurationMin {
		a.DurationMin = MinDurationMin
	}

	windowStart := earliestStart(tl)
	if len(tl) == 0 {
		switch {
		case a.PinnedStart != nil:
			windowStart = *a.PinnedStart
		case !a.StartTime.IsZero():
			windowStart = a.StartTime
		default:
			windowStart = m.now()
		}
	}

	if at < 0 || at > len(tl) {
		at = len(tl)
	}
	next := make([]models.Activity, 0, len(tl)+1)
	next = append(next, tl[:at]...)
	next = append(next, a)
	next = append(next, tl[at:]...)

	recalculate(next, windowStart)
	return next
}

// Delete removes the activity with the given id and closes the gap: later
// activities shift earlier to "previous end + buffer". The second return
// value reports whether the id was found.
func (m *Mutator) Delete(tl []models.Activity, id uuid.UUID) ([]models.Activity, bool) {
	idx := indexOf(tl, id)
	if idx < 0 {
		return cloneTimeline(tl), false
	}

	windowStart := earliestStart(tl)
	next := make([]models.Activity, 0, len(tl)-1)
	next = append(next, tl[:idx]...)
	next = append(next, tl[idx+1:]...)

	recalculate(next, windowStart)
	return next, true
}

// UpdateField applies the patch to one activity. A duration change
// recalculates from that activity forward only; earlier activities are
// untouched. Durations below the floor are clamped up.
func (m *Mutator) UpdateField(tl []models.Activity, id uuid.UUID, patch FieldPatch) ([]models.Activity, error) {
	idx := indexOf(tl, id)
	if idx < 0 {
		return nil, fmt.Errorf("update: activity %s not in timeline", id)
	}

	next := cloneTimeline(tl)
	a := &next[idx]

	durationChanged := false
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if patch.AssignedTo != nil {
		a.AssignedTo = append([]string(nil), (*patch.AssignedTo)...)
	}
	if patch.IsHighlight != nil {
		a.IsHighlight = *patch.IsHighlight
	}
	if patch.DurationMin != nil {
		d := *patch.DurationMin
		if d < MinDurationMin {
			d = MinDurationMin
		}
		if d != a.DurationMin {
			a.DurationMin = d
			durationChanged = true
		}
	}

	if durationChanged {
		recalculate(next[idx:], a.StartTime)
	}
	return next, nil
}

// RebaseAnchor shifts every activity by (newAnchorTime - oldAnchorTime),
// preserving all relative offsets and durations exactly. The old anchor is
// the first pinned ceremony, falling back to the earliest start.
func (m *Mutator) RebaseAnchor(tl []models.Activity, newAnchorTime time.Time) []models.Activity {
	next := cloneTimeline(tl)
	if len(next) == 0 {
		return next
	}

	oldAnchor := earliestStart(tl)
	for i := range tl {
		if tl[i].IsPinned() {
			oldAnchor = *tl[i].PinnedStart
			break
		}
	}

	delta := newAnchorTime.Sub(oldAnchor)
	for i := range next {
		next[i].StartTime = next[i].StartTime.Add(delta)
		next[i].EndTime = next[i].EndTime.Add(delta)
		if next[i].PinnedStart != nil {
			pinned := next[i].PinnedStart.Add(delta)
			next[i].PinnedStart = &pinned
		}
	}
	return next
}

// recalculate runs the builder's forward pass over an already-ordered slice,
// clamping durations to the edit floor first.
func recalculate(tl []models.Activity, windowStart time.Time) {
	for i := range tl {
		if tl[i].DurationMin < MinDurationMin {
			tl[i].DurationMin = MinDurationMin
		}
	}
	schedule(tl, windowStart)
}

func earliestStart(tl []models.Activity) time.Time {
	var earliest time.Time
	for i := range tl {
		if i == 0 || tl[i].StartTime.Before(earliest) {
			earliest = tl[i].StartTime
		}
	}
	return earliest
}

func indexOf(tl []models.Activity, id uuid.UUID) int {
	for i := range tl {
		if tl[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTimeline(tl []models.Activity) []models.Activity {
	next := make([]models.Activity, len(tl))
	copy(next, tl)
	return next
}
