package query

import (
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
)

// Joiner links a clause to the expression accumulated from prior clauses.
type Joiner string

// Joiners.
const (
	JoinAnd Joiner = "and"
	JoinOr  Joiner = "or"
	JoinNot Joiner = "not"
)

// ParseJoiner maps a raw joiner to a Joiner; anything but "or" and "not" is "and".
func ParseJoiner(s string) Joiner {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "or":
		return JoinOr
	case "not":
		return JoinNot
	default:
		return JoinAnd
	}
}

// Clause is one typed filter row.
type Clause struct {
	Joiner Joiner
	// Field is a property term ("dcterms:title"), a numeric property id,
	// or empty for any field.
	Field  string
	Except []string
	Type   comparison.Type
	Values []string
}

// Value returns the first value or "".
func (c Clause) Value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0]
}

// HasValue reports whether any value is non-blank.
func (c Clause) HasValue() bool {
	for _, v := range c.Values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func (c Clause) clone() Clause {
	c.Except = cloneStrings(c.Except)
	c.Values = cloneStrings(c.Values)
	return c
}

// DateField is a resource timestamp column.
type DateField string

// Date fields.
const (
	FieldCreated  DateField = "created"
	FieldModified DateField = "modified"
)

// Valid reports whether f is a known date field.
func (f DateField) Valid() bool { return f == FieldCreated || f == FieldModified }

// DateTimeClause is one created/modified range row.
type DateTimeClause struct {
	Joiner Joiner
	Field  DateField
	Type   comparison.Type
	Value  string
}

// Range is an inclusive from/to pair; either side may be empty.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IsEmpty reports whether both bounds are blank.
func (r Range) IsEmpty() bool {
	return strings.TrimSpace(r.From) == "" && strings.TrimSpace(r.To) == ""
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
