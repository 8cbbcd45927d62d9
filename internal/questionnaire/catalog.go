package questionnaire

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// QuestionType selects how a question's answer is interpreted.
type QuestionType string

const (
	TypeChoice      QuestionType = "choice"
	TypeMultiChoice QuestionType = "multi_choice"
	TypeTime        QuestionType = "time"
	TypeNumber      QuestionType = "number"
	TypeText        QuestionType = "text"
	TypeFixed       QuestionType = "fixed"
)

// Option is one selectable answer. A positive DurationMin makes it a timed
// option; otherwise it is a plain value whose duration resolves elsewhere.
type Option struct {
	Value       string `yaml:"value"`
	DurationMin int    `yaml:"duration_min"`
}

// Timed reports whether the option carries its own duration.
func (o Option) Timed() bool { return o.DurationMin > 0 }

// Rule is the YAML form of one visible_if conjunct: either an equals or a
// one_of match on a previously answered field.
type Rule struct {
	Field  string   `yaml:"field"`
	Equals string   `yaml:"equals,omitempty"`
	OneOf  []string `yaml:"one_of,omitempty"`
}

// Question describes one questionnaire entry. An answered question produces
// at most one activity.
type Question struct {
	OptionName  string          `yaml:"option_name"`
	Label       string          `yaml:"label"`
	Category    models.Category `yaml:"category"`
	Block       int             `yaml:"block,omitempty"`
	Leg         int             `yaml:"leg,omitempty"`
	Type        QuestionType    `yaml:"type"`
	DurationMin int             `yaml:"duration_min,omitempty"`
	Options     []Option        `yaml:"options,omitempty"`
	VisibleIf   []Rule          `yaml:"visible_if,omitempty"`
	Highlight   bool            `yaml:"highlight,omitempty"`
}

// Condition builds the boolean expression tree for the question's
// visible_if rules. A question with no rules is always visible.
func (q *Question) Condition() Condition {
	if len(q.VisibleIf) == 0 {
		return And{}
	}
	conds := make(And, 0, len(q.VisibleIf))
	for _, r := range q.VisibleIf {
		if len(r.OneOf) > 0 {
			conds = append(conds, OneOf{Field: r.Field, Values: r.OneOf})
			continue
		}
		conds = append(conds, Equals{Field: r.Field, Value: r.Equals})
	}
	return conds
}

// Visible evaluates the question's condition against the answers.
func (q *Question) Visible(answers AnswerSet) bool {
	return q.Condition().Eval(answers)
}

// Catalog is the full ordered question set driving automatic activity
// generation.
type Catalog struct {
	Questions []Question `yaml:"questions"`
}

// LoadCatalog reads and validates a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks structural invariants of the catalog.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Questions))
	for i := range c.Questions {
		q := &c.Questions[i]
		if q.OptionName == "" {
			return fmt.Errorf("question %d: option_name is required", i)
		}
		if seen[q.OptionName] {
			return fmt.Errorf("question %d: duplicate option_name %q", i, q.OptionName)
		}
		seen[q.OptionName] = true
		if q.Label == "" {
			return fmt.Errorf("question %q: label is required", q.OptionName)
		}
		if !validCategory(q.Category) {
			return fmt.Errorf("question %q: invalid category %q", q.OptionName, q.Category)
		}
		for _, r := range q.VisibleIf {
			if r.Field == "" {
				return fmt.Errorf("question %q: visible_if rule missing field", q.OptionName)
			}
			if r.Equals == "" && len(r.OneOf) == 0 {
				return fmt.Errorf("question %q: visible_if rule on %q needs equals or one_of", q.OptionName, r.Field)
			}
		}
	}
	return nil
}

func validCategory(c models.Category) bool {
	for _, known := range models.Categories() {
		if c == known {
			return true
		}
	}
	return false
}
