package timeline

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// PrepWindowMin is the default preparation window scheduled ahead of the
// anchor ceremony when activities precede it.
const PrepWindowMin = 180

// Builder computes absolute start/end times for a set of activities.
//
// Building is deterministic: the same input set and clock always produce the
// same timeline. The builder never mutates its input; it returns fresh
// copies.
type Builder struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates a builder. A nil logger disables the anchor-default
// warning.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger, now: time.Now}
}

// WithClock overrides the builder's clock. Used by tests and by callers that
// need a stable anchor fallback.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build orders the activities by category precedence, anchors the sequence on
// the first ceremony carrying an explicit time, and walks the order applying
// durations and category buffers.
//
// When no ceremony is pinned the anchor defaults to the current time and a
// warning is logged; the build still succeeds.
func (b *Builder) Build(activities []models.Activity, dualCeremony bool) []models.Activity {
	if len(activities) == 0 {
		return []models.Activity{}
	}

	ordered := make([]models.Activity, len(activities))
	copy(ordered, activities)
	sortByPrecedence(ordered, dualCeremony)

	anchorIdx := -1
	for i := range ordered {
		if ordered[i].IsPinned() {
			anchorIdx = i
			break
		}
	}

	var anchorTime time.Time
	if anchorIdx >= 0 {
		anchorTime = *ordered[anchorIdx].PinnedStart
	} else {
		anchorTime = b.now()
		if b.logger != nil {
			b.logger.Warn("no_pinned_ceremony_defaulting_anchor",
				zap.Time("anchor_time", anchorTime),
				zap.Int("activity_count", len(ordered)),
			)
		}
	}

	// Activities ahead of the anchor occupy a fixed preparation window
	// ending at the anchor; with nothing ahead the day starts at the anchor.
	cursor := anchorTime
	if anchorIdx > 0 {
		cursor = anchorTime.Add(-PrepWindowMin * time.Minute)
	}

	schedule(ordered, cursor)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime.Before(ordered[j].StartTime)
	})
	return ordered
}

// schedule runs the forward pass over activities already in build order.
// Pinned ceremonies keep their explicit time even when it falls before the
// accumulated cursor: explicit user intent wins over sequencing drift.
func schedule(ordered []models.Activity, windowStart time.Time) {
	cursor := windowStart
	for i := range ordered {
		a := &ordered[i]
		start := cursor
		if a.IsPinned() {
			start = *a.PinnedStart
		}
		a.StartTime = start
		a.EndTime = start.Add(a.Duration())
		cursor = a.EndTime.Add(time.Duration(BufferAfter(a.Category)) * time.Minute)
	}
}

// Precedence slots. Single-ceremony mode runs preparation, travel out,
// ceremony, travel back, then the reception chain. Dual-ceremony mode
// interleaves a second preparation/travel/ceremony block between the two
// ceremonies.
func precedenceSlot(a *models.Activity, dual bool) int {
	if !dual {
		switch a.Category {
		case models.CategoryPreparation:
			return 0
		case models.CategoryTravel:
			if a.Leg <= 1 {
				return 1
			}
			return 3
		case models.CategoryCeremony:
			return 2
		case models.CategoryPhotos:
			return 4
		case models.CategoryCocktail:
			return 5
		case models.CategoryMeal:
			return 6
		case models.CategoryParty:
			return 7
		default:
			return 8
		}
	}

	switch a.Category {
	case models.CategoryPreparation:
		if a.Block >= 2 {
			return 5
		}
		return 0
	case models.CategoryTravel:
		switch a.Leg {
		case 0, 1:
			return 1
		case 2:
			return 3
		case 3:
			return 4
		default:
			return 6
		}
	case models.CategoryCeremony:
		if a.Block >= 2 {
			return 7
		}
		return 2
	case models.CategoryPhotos:
		return 8
	case models.CategoryCocktail:
		return 9
	case models.CategoryMeal:
		return 10
	case models.CategoryParty:
		return 11
	default:
		return 12
	}
}

// sortByPrecedence fixes the relative order of the build. Ties inside a slot
// break on leg, declaration sequence, title, then id so rebuilding an
// unordered set is idempotent. The sequence comes before the title: three
// preparation steps keep their questionnaire order, not alphabetical order.
func sortByPrecedence(activities []models.Activity, dual bool) {
	sort.SliceStable(activities, func(i, j int) bool {
		a, b := &activities[i], &activities[j]
		sa, sb := precedenceSlot(a, dual), precedenceSlot(b, dual)
		if sa != sb {
			return sa < sb
		}
		if a.Leg != b.Leg {
			return a.Leg < b.Leg
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID.String() < b.ID.String()
	})
}
