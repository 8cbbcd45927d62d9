package questionnaire

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// AnswerDualCeremony is the answer-set field selecting dual-ceremony mode.
const AnswerDualCeremony = "double_ceremonie"

// Generate turns an answer set into the activities it declares. The returned
// flag reports dual-ceremony mode. Activities come back without computed
// times; the timeline builder assigns those.
//
// Skip values (false, "non", non-positive numbers) suppress the activity for
// that question. Ceremony questions answered with a wall-clock time become
// pinned anchors on the event date.
func (c *Catalog) Generate(planningID uuid.UUID, answers AnswerSet, eventDate time.Time) ([]models.Activity, bool, error) {
	dual := false
	if v, ok := answers[AnswerDualCeremony]; ok {
		dual = normalizeAnswer(v) == "oui"
	}

	activities := make([]models.Activity, 0, len(c.Questions))
	for i := range c.Questions {
		q := &c.Questions[i]
		if !q.Visible(answers) {
			continue
		}

		v, answered := answers[q.OptionName]
		if q.Type != TypeFixed {
			if !answered || IsSkipValue(v) {
				continue
			}
		}

		a, err := c.activityFor(q, v, planningID, eventDate)
		if err != nil {
			return nil, false, err
		}
		// Catalog position, 1-based. The builder uses it to keep
		// same-category activities in questionnaire order.
		a.Seq = i + 1
		activities = append(activities, a)
	}
	return activities, dual, nil
}

func (c *Catalog) activityFor(q *Question, v any, planningID uuid.UUID, eventDate time.Time) (models.Activity, error) {
	selected := normalizeAnswer(v)

	a := models.Activity{
		ID:          uuid.New(),
		PlanningID:  planningID,
		Title:       q.Label,
		Category:    q.Category,
		Block:       q.Block,
		Leg:         q.Leg,
		IsHighlight: q.Highlight || q.Category == models.CategoryCeremony,
		Source:      models.SourceQuestionnaire,
	}

	switch q.Type {
	case TypeTime:
		at, err := ParseWallClock(eventDate, selected)
		if err != nil {
			return models.Activity{}, fmt.Errorf("question %q: %w", q.OptionName, err)
		}
		if q.Category == models.CategoryCeremony {
			a.PinnedStart = &at
		}
		a.DurationMin = ResolveDuration(q, "")
	case TypeNumber:
		if n := intAnswer(v); n > 0 {
			a.DurationMin = n
		} else {
			a.DurationMin = ResolveDuration(q, selected)
		}
	case TypeMultiChoice:
		if vs, ok := v.([]string); ok && len(vs) > 0 {
			selected = vs[0]
			a.Notes = strings.Join(vs, ", ")
		}
		a.DurationMin = ResolveDuration(q, selected)
	default:
		a.DurationMin = ResolveDuration(q, selected)
	}

	return a, nil
}

func intAnswer(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	default:
		return 0
	}
}

// ParseWallClock parses a local wall-clock answer ("15:00" or "15h00") onto
// the given calendar day.
func ParseWallClock(day time.Time, s string) (time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "h", ":"))
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid wall-clock time %q", s)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
