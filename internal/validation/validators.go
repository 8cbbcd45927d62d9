package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("category", validateCategory); err != nil {
		panic(fmt.Sprintf("failed to register category validator: %v", err))
	}
	if err := Validate.RegisterValidation("wall_clock", validateWallClock); err != nil {
		panic(fmt.Sprintf("failed to register wall_clock validator: %v", err))
	}
}

// validateCategory validates that a string is a valid Category enum value
func validateCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).Valid()
}

// validateWallClock validates an "HH:MM" or "HHhMM" wall-clock string
func validateWallClock(fl validator.FieldLevel) bool {
	value := strings.ReplaceAll(strings.ToLower(fl.Field().String()), "h", ":")
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return false
	}
	h, m := parts[0], parts[1]
	if len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return false
	}
	hour, minute := 0, 0
	if _, err := fmt.Sscanf(h, "%d", &hour); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(m, "%d", &minute); err != nil {
		return false
	}
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// SanitizeText trims whitespace and strips control characters from user text
// (titles, notes). Newlines and tabs survive so multi-line notes keep their
// shape.
func SanitizeText(text string) string {
	var clean strings.Builder
	clean.Grow(len(text))
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		clean.WriteRune(r)
	}
	return clean.String()
}

// ValidateCategory validates a Category string value
func ValidateCategory(value string) error {
	if models.Category(value).Valid() {
		return nil
	}
	names := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		names = append(names, string(c))
	}
	return fmt.Errorf("invalid category: %s (must be one of %s)", value, strings.Join(names, ", "))
}

// ValidateSource validates an ActivitySource string value
func ValidateSource(value string) error {
	switch models.ActivitySource(value) {
	case models.SourceQuestionnaire, models.SourceManual, models.SourceAI:
		return nil
	default:
		return fmt.Errorf("invalid source: %s (must be 'questionnaire', 'manual', or 'ai')", value)
	}
}
