// Package plan turns a Query into engine-agnostic clause groups: rows are
// normalized, "not" joiners are rewritten to reciprocal types, active facets
// become filters and the backend clause cap is enforced.
package plan

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// WarningKind classifies a plan warning.
type WarningKind string

// Warning kinds.
const (
	WarnExclusionsDropped WarningKind = "exclusions_dropped"
	WarnTruncated         WarningKind = "truncated"
	WarnUnknownType       WarningKind = "unknown_type"
	WarnMissingValue      WarningKind = "missing_value"
	WarnUnknownDateField  WarningKind = "unknown_date_field"
	WarnUnsupported       WarningKind = "unsupported"
	WarnIncorrectValue    WarningKind = "incorrect_value"
)

// Warning is surfaced to logs, metrics and the response message.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string { return w.Message }

// Diagnostics is what one compilation changed or rejected: the warnings of
// the plan and the engine, and the reasons of never-matching predicates.
type Diagnostics struct {
	Warnings  []Warning
	Incorrect []string
}

// Capped reports the clause-cap actions taken, in order.
func (d Diagnostics) Capped() []WarningKind {
	var out []WarningKind
	for _, w := range d.Warnings {
		if w.Kind == WarnExclusionsDropped || w.Kind == WarnTruncated {
			out = append(out, w.Kind)
		}
	}
	return out
}

// ConstraintKind names a facet-derived scope restriction.
type ConstraintKind string

// Constraint kinds.
const (
	ConstrainResourceClass ConstraintKind = "resource_class"
	ConstrainItemSet       ConstraintKind = "item_set"
)

// Constraint requires a resource to match any of Values.
type Constraint struct {
	Kind   ConstraintKind
	Values []string
}

// Options carries engine configuration.
type Options struct {
	// ResourceTypes the engine can search, in preferred order.
	ResourceTypes []string
	// ExcludedFields are skipped by free-text search.
	ExcludedFields []string
	// MaxClauses caps value clauses; zero disables the cap.
	MaxClauses int
}

// Plan is the engine-agnostic form of one Query.
type Plan struct {
	ResourceTypes  []string
	Groups         [][]query.Clause
	DateTimes      []query.DateTimeClause
	Scope          query.Scope
	Constraints    []Constraint
	ExcludedFields []string
	Warnings       []Warning
}

// Empty reports whether no requested resource type is searchable.
func (p Plan) Empty() bool { return len(p.ResourceTypes) == 0 }

// ClauseCount returns the number of value clauses across groups.
func (p Plan) ClauseCount() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g)
	}
	return n
}

// Warn appends a warning.
func (p *Plan) Warn(kind WarningKind, format string, args ...any) {
	p.Warnings = append(p.Warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Messages returns the warning messages.
func (p Plan) Messages() []string {
	out := make([]string, len(p.Warnings))
	for i, w := range p.Warnings {
		out[i] = w.Message
	}
	return out
}

// Build plans q for an engine described by opts.
func Build(q query.Query, opts Options) Plan {
	p := Plan{Scope: q.Scope(), ExcludedFields: opts.ExcludedFields}
	p.ResourceTypes = intersect(q.ResourceTypes(), opts.ResourceTypes)
	for _, name := range query.FilterFields(q.ActiveFacets()) {
		if spec, ok := q.Facet(name); ok && spec.Type == query.FacetResourceType {
			p.ResourceTypes = intersect(q.ActiveFacets()[name].Values, p.ResourceTypes)
		}
	}
	p.Constraints = constraints(q)

	p.Groups = p.groups(q, p.ExcludedFields)
	if opts.MaxClauses > 0 && p.ClauseCount() > opts.MaxClauses && len(p.ExcludedFields) > 0 {
		p.Warn(WarnExclusionsDropped,
			"query has %d clauses, more than the %d allowed: excluded fields are ignored",
			p.ClauseCount(), opts.MaxClauses)
		p.ExcludedFields = nil
		p.Warnings = dropKinds(p.Warnings, WarnUnknownType, WarnMissingValue)
		p.Groups = p.groups(q, nil)
	}
	if opts.MaxClauses > 0 && p.ClauseCount() > opts.MaxClauses {
		p.Warn(WarnTruncated,
			"query has %d clauses, more than the %d allowed: the last %d are ignored",
			p.ClauseCount(), opts.MaxClauses, p.ClauseCount()-opts.MaxClauses)
		p.Groups = truncate(p.Groups, opts.MaxClauses)
	}

	p.DateTimes = p.dateTimes(q.DateTimes())
	return p
}

// groups collects value clauses in a fixed order. Each group folds with the
// joiner rule; groups combine with AND.
func (p *Plan) groups(q query.Query, excluded []string) [][]query.Clause {
	var groups [][]query.Clause
	add := func(rows []query.Clause) {
		var kept []query.Clause
		for _, c := range rows {
			if n, ok := p.normalize(c); ok {
				kept = append(kept, n)
			}
		}
		if len(kept) > 0 {
			groups = append(groups, kept)
		}
	}

	if text := q.Text(); text != "" {
		add([]query.Clause{{
			Joiner: query.JoinAnd,
			Except: excluded,
			Type:   comparison.In,
			Values: []string{text},
		}})
	}
	add(q.Properties())
	for _, field := range query.FilterFields(q.FilterQueries()) {
		add(q.FilterQueries()[field])
	}
	for _, field := range query.FilterFields(q.Filters()) {
		add([]query.Clause{{Joiner: query.JoinAnd, Field: field, Type: comparison.List, Values: q.Filters()[field]}})
	}
	for _, field := range query.FilterFields(q.FilterRanges()) {
		for _, r := range q.FilterRanges()[field] {
			add(rangeClauses(field, r))
		}
	}
	for _, name := range query.FilterFields(q.ActiveFacets()) {
		if rows := p.facetClauses(q, name); len(rows) > 0 {
			add(rows)
		}
	}
	return groups
}

func (p *Plan) facetClauses(q query.Query, name string) []query.Clause {
	active := q.ActiveFacets()[name]
	if active.IsEmpty() {
		return nil
	}
	spec, ok := q.Facet(name)
	if !ok {
		spec = query.FacetSpec{Name: name, Field: name, Type: query.FacetValue}
	}
	switch spec.Type {
	case query.FacetResourceType:
		// Handled once in Build via constrainTypes; no clause.
		return nil
	case query.FacetResourceClass, query.FacetItemSet:
		// Collected by Constraints; no clause.
		return nil
	}
	if active.Range != nil {
		return rangeClauses(spec.Field, *active.Range)
	}
	return []query.Clause{{Joiner: query.JoinAnd, Field: spec.Field, Type: comparison.List, Values: active.Values}}
}

func rangeClauses(field string, r query.Range) []query.Clause {
	var rows []query.Clause
	if from := strings.TrimSpace(r.From); from != "" {
		rows = append(rows, query.Clause{Joiner: query.JoinAnd, Field: field, Type: comparison.Gte, Values: []string{from}})
	}
	if to := strings.TrimSpace(r.To); to != "" {
		rows = append(rows, query.Clause{Joiner: query.JoinAnd, Field: field, Type: comparison.Lte, Values: []string{to}})
	}
	return rows
}

// normalize rewrites "not" to the reciprocal type and cleans values.
// ok is false when the clause must be skipped.
func (p *Plan) normalize(c query.Clause) (query.Clause, bool) {
	t, known := comparison.Parse(strings.TrimSpace(string(c.Type)))
	if !known {
		p.Warn(WarnUnknownType, "unknown comparison type %q on %s: clause ignored", c.Type, fieldLabel(c.Field))
		return query.Clause{}, false
	}
	out := query.Clause{
		Joiner: c.Joiner,
		Field:  strings.TrimSpace(c.Field),
		Except: uniqueTrimmed(c.Except, false),
		Type:   t,
	}
	if out.Joiner == query.JoinNot {
		out.Joiner = query.JoinAnd
		out.Type = t.Reciprocal()
	}
	if out.Joiner != query.JoinOr {
		out.Joiner = query.JoinAnd
	}

	if out.Type.Shape() == comparison.ShapeList {
		out.Values = uniqueTrimmed(c.Values, true)
		return out, len(out.Values) > 0
	}
	out.Values = uniqueTrimmed(c.Values, false)
	if out.Type.RequiresValue() && len(out.Values) == 0 {
		p.Warn(WarnMissingValue, "comparison %q on %s needs a value: clause ignored", out.Type, fieldLabel(out.Field))
		return query.Clause{}, false
	}
	return out, true
}

func (p *Plan) dateTimes(rows []query.DateTimeClause) []query.DateTimeClause {
	var out []query.DateTimeClause
	for _, c := range rows {
		t, known := comparison.Parse(strings.TrimSpace(string(c.Type)))
		if c.Joiner == query.JoinNot {
			c.Joiner = query.JoinAnd
			t = t.Reciprocal()
		}
		if c.Joiner != query.JoinOr {
			c.Joiner = query.JoinAnd
		}
		if !known || !t.IsDateType() {
			p.Warn(WarnUnknownType, "unknown date comparison %q on %s: clause ignored", c.Type, c.Field)
			continue
		}
		if !c.Field.Valid() {
			p.Warn(WarnUnknownDateField, "unknown date field %q: clause ignored", c.Field)
			continue
		}
		c.Type = t
		if t.RequiresValue() && c.Value == "" {
			p.Warn(WarnMissingValue, "date comparison %q on %s needs a value: clause ignored", t, c.Field)
			continue
		}
		out = append(out, c)
	}
	return out
}

func constraints(q query.Query) []Constraint {
	var out []Constraint
	for _, name := range query.FilterFields(q.ActiveFacets()) {
		spec, ok := q.Facet(name)
		if !ok {
			continue
		}
		active := q.ActiveFacets()[name]
		switch spec.Type {
		case query.FacetResourceClass:
			out = append(out, Constraint{Kind: ConstrainResourceClass, Values: active.Values})
		case query.FacetItemSet:
			out = append(out, Constraint{Kind: ConstrainItemSet, Values: active.Values})
		}
	}
	return out
}

// intersect keeps the members of available that were requested, in request
// order. An empty request means everything available.
func intersect(requested, available []string) []string {
	if len(requested) == 0 {
		return append([]string(nil), available...)
	}
	var out []string
	for _, r := range requested {
		for _, a := range available {
			if r == a {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func fieldLabel(field string) string {
	if field == "" {
		return "any field"
	}
	return fmt.Sprintf("%q", field)
}

func uniqueTrimmed(values []string, splitLines bool) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		parts := []string{raw}
		if splitLines {
			parts = strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
		}
		for _, v := range parts {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func truncate(groups [][]query.Clause, max int) [][]query.Clause {
	var out [][]query.Clause
	left := max
	for _, g := range groups {
		if left == 0 {
			break
		}
		if len(g) > left {
			g = g[:left]
		}
		out = append(out, g)
		left -= len(g)
	}
	return out
}

func dropKinds(ws []Warning, kinds ...WarningKind) []Warning {
	var out []Warning
	for _, w := range ws {
		drop := false
		for _, k := range kinds {
			if w.Kind == k {
				drop = true
			}
		}
		if !drop {
			out = append(out, w)
		}
	}
	return out
}
