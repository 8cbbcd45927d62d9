package models

// SuggestedTask is one task proposed by the AI collaborator for a freeform
// scenario. Durations arrive as plain integers; no further duration
// resolution happens on this path.
type SuggestedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DurationMin int      `json:"duration_minutes"`
	Category    Category `json:"category,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

// Valid reports whether the suggestion carries the fields required for a
// merge. Suggestions failing this check are dropped, never fatal.
func (s *SuggestedTask) Valid() bool {
	return s.Title != "" && s.DurationMin > 0
}
