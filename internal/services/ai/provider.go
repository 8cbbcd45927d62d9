package ai

import (
	"context"
	"time"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// SuggestionRequest carries everything the provider needs to propose tasks
// for a wedding day.
type SuggestionRequest struct {
	// Scenario is the couple's freeform description of their day.
	Scenario string
	// AnchorTime is the ceremony anchor, when known. Gives the model the
	// shape of the day.
	AnchorTime *time.Time
	// ExistingTitles lists activities already on the timeline so the model
	// avoids proposing duplicates.
	ExistingTitles []string
}

// SuggestionProvider proposes wedding-day tasks for a scenario.
type SuggestionProvider interface {
	// Suggest proposes tasks for the scenario. Malformed entries in the
	// model output are dropped, not fatal; the second return value counts
	// them.
	Suggest(ctx context.Context, req SuggestionRequest) ([]models.SuggestedTask, int, error)
}
