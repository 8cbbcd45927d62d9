package timeline

import (
	"sort"
	"time"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// Group is a presentation-only cluster of activities whose time windows
// overlap. Single-member groups render as normal items; multi-member groups
// render side by side under the shared range label.
type Group struct {
	Activities []models.Activity `json:"activities"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
}

// Parallel reports whether the group holds more than one activity.
func (g *Group) Parallel() bool {
	return len(g.Activities) > 1
}

// GroupOverlapping clusters activities sharing an overlapping [start, end)
// window. It is a pure read-side transform over the timeline: nothing is
// altered or persisted.
func GroupOverlapping(tl []models.Activity) []Group {
	if len(tl) == 0 {
		return []Group{}
	}

	sorted := cloneTimeline(tl)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	groups := make([]Group, 0, len(sorted))
	current := Group{
		Activities: []models.Activity{sorted[0]},
		Start:      sorted[0].StartTime,
		End:        sorted[0].EndTime,
	}

	for _, a := range sorted[1:] {
		if a.StartTime.Before(current.End) {
			current.Activities = append(current.Activities, a)
			if a.EndTime.After(current.End) {
				current.End = a.EndTime
			}
			continue
		}
		groups = append(groups, current)
		current = Group{
			Activities: []models.Activity{a},
			Start:      a.StartTime,
			End:        a.EndTime,
		}
	}
	return append(groups, current)
}
