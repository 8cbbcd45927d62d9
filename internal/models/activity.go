package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies an activity on the wedding day. It drives both the
// ordering precedence inside the timeline builder and the buffer inserted
// after the activity.
type Category string

const (
	CategoryPreparation Category = "preparation"
	CategoryTravel      Category = "travel"
	CategoryCeremony    Category = "ceremony"
	CategoryPhotos      Category = "photos"
	CategoryCocktail    Category = "cocktail"
	CategoryMeal        Category = "meal"
	CategoryParty       Category = "evening_party"
	CategoryCustom      Category = "custom"
)

// Categories lists every valid category value.
func Categories() []Category {
	return []Category{
		CategoryPreparation,
		CategoryTravel,
		CategoryCeremony,
		CategoryPhotos,
		CategoryCocktail,
		CategoryMeal,
		CategoryParty,
		CategoryCustom,
	}
}

// Valid reports whether c is a known category value.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ActivitySource records how an activity entered the timeline.
type ActivitySource string

const (
	SourceQuestionnaire ActivitySource = "questionnaire"
	SourceManual        ActivitySource = "manual"
	SourceAI            ActivitySource = "ai"
)

// Activity is one schedulable entry of a day-of timeline.
//
// Block distinguishes the first and second ceremony block in dual-ceremony
// mode (1 or 2); Leg numbers travel legs 1..4. Both are zero for categories
// where they do not apply. Seq records the order the activity was declared
// in (questionnaire catalog position, then insertion order); activities that
// land in the same precedence slot keep that order across rebuilds.
type Activity struct {
	ID          uuid.UUID      `json:"id"`
	PlanningID  uuid.UUID      `json:"planning_id"`
	Title       string         `json:"title"`
	Category    Category       `json:"category"`
	Block       int            `json:"block,omitempty"`
	Leg         int            `json:"leg,omitempty"`
	Seq         int            `json:"seq,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	DurationMin int            `json:"duration_min"`
	PinnedStart *time.Time     `json:"pinned_start,omitempty"`
	IsHighlight bool           `json:"is_highlight"`
	Notes       string         `json:"notes,omitempty"`
	AssignedTo  []string       `json:"assigned_to,omitempty"`
	Source      ActivitySource `json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Duration returns the activity duration as a time.Duration.
func (a *Activity) Duration() time.Duration {
	return time.Duration(a.DurationMin) * time.Minute
}

// IsPinned reports whether the activity carries an explicit user-fixed
// start time. Only ceremonies act as timing anchors.
func (a *Activity) IsPinned() bool {
	return a.Category == CategoryCeremony && a.PinnedStart != nil
}
