package questionnaire

import (
	"fmt"
	"strconv"
)

// AnswerSet holds the user's questionnaire answers keyed by option name.
// Values may be strings, booleans, or numbers depending on the question
// type; conditions normalize them before comparing.
type AnswerSet map[string]any

// Condition is a boolean expression over an answer set, used for the
// visible_if branching of questions (e.g. dual-ceremony sub-questions).
type Condition interface {
	Eval(answers AnswerSet) bool
}

// Equals matches when the answer for Field normalizes to Value.
type Equals struct {
	Field string
	Value string
}

// Eval implements Condition.
func (c Equals) Eval(answers AnswerSet) bool {
	v, ok := answers[c.Field]
	if !ok {
		return false
	}
	return normalizeAnswer(v) == c.Value
}

// OneOf matches when the answer for Field normalizes to any of Values.
type OneOf struct {
	Field  string
	Values []string
}

// Eval implements Condition.
func (c OneOf) Eval(answers AnswerSet) bool {
	v, ok := answers[c.Field]
	if !ok {
		return false
	}
	s := normalizeAnswer(v)
	for _, want := range c.Values {
		if s == want {
			return true
		}
	}
	return false
}

// And is a conjunction. An empty conjunction is true.
type And []Condition

// Eval implements Condition.
func (c And) Eval(answers AnswerSet) bool {
	for _, sub := range c {
		if !sub.Eval(answers) {
			return false
		}
	}
	return true
}

// normalizeAnswer renders an answer value as a comparable string. Booleans
// map to oui/non to match the catalog's choice values.
func normalizeAnswer(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "oui"
		}
		return "non"
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
