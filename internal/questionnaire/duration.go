package questionnaire

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultDurationMin is returned when no resolution rule matches.
const DefaultDurationMin = 30

var embeddedDurationRe = regexp.MustCompile(`\((\d+)\s*minutes?\)`)

// keywordDefaults maps option-name substrings to fallback durations in
// minutes. Travel is handled separately since its default depends on the leg.
var keywordDefaults = []struct {
	keyword string
	minutes int
}{
	{"coiffure", 60},
	{"maquillage", 45},
	{"habillage", 30},
	{"ceremonie", 60},
	{"cocktail", 90},
	{"repas", 180},
	{"soiree", 240},
	{"photos", 30},
}

// ResolveDuration determines an activity's duration in minutes for the
// selected answer value:
//
//  1. a fixed question duration wins;
//  2. then a per-option duration table, matched exactly on the option value;
//  3. then a duration embedded in the raw value as "(N minutes)";
//  4. then a keyword default keyed on the question's option name.
//
// Skip values (false, "non", non-positive numbers) are rejected one level
// up, before this is called.
func ResolveDuration(q *Question, selected string) int {
	if q.DurationMin > 0 {
		return q.DurationMin
	}

	for _, opt := range q.Options {
		if opt.Value == selected && opt.Timed() {
			return opt.DurationMin
		}
	}

	if m := embeddedDurationRe.FindStringSubmatch(selected); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}

	name := strings.ToLower(q.OptionName)
	if strings.Contains(name, "trajet") || strings.Contains(name, "travel") {
		// The first leg carries the long drive to the venue; the remaining
		// legs are short hops between nearby sites.
		if q.Leg <= 1 {
			return 30
		}
		return 15
	}
	for _, kd := range keywordDefaults {
		if strings.Contains(name, kd.keyword) {
			return kd.minutes
		}
	}

	return DefaultDurationMin
}

// IsSkipValue reports whether an answer disables the whole activity: a false
// boolean, the literal strings "non"/"Non", or a non-positive number.
func IsSkipValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return strings.EqualFold(t, "non")
	case int:
		return t <= 0
	case float64:
		return t <= 0
	default:
		return false
	}
}
