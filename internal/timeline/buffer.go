package timeline

import "github.com/MATHILDEdemariable/jourj/internal/models"

// DefaultBufferMin is the gap applied after categories without a dedicated
// entry in the buffer table.
const DefaultBufferMin = 5

// BufferAfter returns the minimum gap in minutes to leave after an activity
// of the given category before the next one may start.
//
// Ceremonies get the largest settle/transition buffer. Travel legs chain
// back-to-back: their duration already represents door-to-door time.
func BufferAfter(c models.Category) int {
	switch c {
	case models.CategoryPreparation:
		return 5
	case models.CategoryCeremony:
		return 15
	case models.CategoryTravel:
		return 0
	case models.CategoryPhotos:
		return 10
	case models.CategoryCocktail:
		return 5
	case models.CategoryMeal:
		return 10
	case models.CategoryParty:
		return 5
	case models.CategoryCustom:
		return 5
	default:
		return DefaultBufferMin
	}
}
