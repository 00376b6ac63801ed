// Package form turns bracketed HTTP query parameters into a search Query.
package form

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// DefaultPerPage applies when page or offset is given without a size.
const DefaultPerPage = 25

// ParseString parses a raw query string such as "q=cat&property[0][type]=ex".
func ParseString(raw string) (query.Query, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return Parse(v)
}

// Parse builds a Query from v. Rows left blank for a type that needs a value
// are dropped; rows with an unknown type are kept so the engine can report
// them.
func Parse(v url.Values) (query.Query, error) {
	root := parseValues(v)
	b := query.NewBuilder().
		Text(root.first("q")).
		ResourceTypes(root.nonEmpty("resource_type")...)

	for _, row := range root.get("property").rows() {
		c, ok := propertyRow(row)
		if ok {
			b.Property(c)
		}
	}
	for _, row := range root.get("datetime").rows() {
		c, ok := dateTimeRow(row)
		if ok {
			b.DateTime(c)
		}
	}
	if err := scope(b, root); err != nil {
		return query.Query{}, err
	}
	filters(b, root)
	facets(b, root.get("facet"))

	b.Sort(root.first("sort_by"), root.first("sort_order"))
	if err := paginate(b, root); err != nil {
		return query.Query{}, err
	}
	if flag(root.first("is_public")) == yes {
		b.Public(true)
	}
	if s := root.first("suggest"); s != "" {
		limit, err := optionalInt(root, "suggest_limit")
		if err != nil {
			return query.Query{}, err
		}
		b.Suggest(query.Suggest{Text: s, Field: root.first("suggest_field"), Limit: limit})
	}
	q, err := b.Build()
	if err != nil {
		return query.Query{}, fmt.Errorf("parse form: %w", err)
	}
	return q, nil
}

func propertyRow(row *node) (query.Clause, bool) {
	c := query.Clause{
		Joiner: query.ParseJoiner(row.first("joiner")),
		Field:  row.first("property"),
		Type:   comparisonType(row.first("type")),
		Except: row.nonEmpty("except"),
		Values: row.nonEmpty("text"),
	}
	if c.Type == "" {
		if len(c.Values) == 0 {
			return c, false
		}
		c.Type = comparison.Eq
	}
	return c, keep(c.Type, len(c.Values) > 0)
}

func dateTimeRow(row *node) (query.DateTimeClause, bool) {
	c := query.DateTimeClause{
		Joiner: query.ParseJoiner(row.first("joiner")),
		Field:  query.DateField(strings.ToLower(row.first("field"))),
		Type:   comparisonType(row.first("type")),
		Value:  row.first("value"),
	}
	if c.Field == "" {
		c.Field = query.FieldCreated
	}
	if c.Type == "" {
		if c.Value == "" {
			return c, false
		}
		c.Type = comparison.Eq
	}
	return c, keep(c.Type, c.Value != "")
}

// keep drops a known value-requiring row left blank.
func keep(t comparison.Type, hasValue bool) bool {
	if _, known := comparison.Parse(string(t)); !known {
		return true
	}
	return hasValue || !t.RequiresValue()
}

func comparisonType(raw string) comparison.Type {
	return comparison.Type(strings.ToLower(raw))
}

func scope(b *query.Builder, root *node) error {
	switch flag(root.first("has_media")) {
	case yes:
		b.HasMedia(true)
	case no:
		b.HasMedia(false)
	}
	b.MediaTypes(root.nonEmpty("media_type")...)
	b.ResourceClasses(root.nonEmpty("resource_class_term")...)

	sets, err := ids(root, "item_set_id")
	if err != nil {
		return err
	}
	b.ItemSets(sets...)
	sites, err := ids(root, "site_id")
	if err != nil {
		return err
	}
	b.Sites(sites...)
	return nil
}

func filters(b *query.Builder, root *node) {
	f := root.get("filter")
	for _, field := range f.names() {
		if vals := f.nonEmpty(field); len(vals) > 0 {
			b.Filter(field, vals...)
		}
	}

	fq := root.get("filter_query")
	for _, field := range fq.names() {
		for _, row := range fq.get(field).rows() {
			c := query.Clause{
				Joiner: query.ParseJoiner(row.first("join")),
				Type:   comparisonType(row.first("type")),
				Values: row.nonEmpty("value"),
			}
			if c.Type == "" {
				c.Type = comparison.Eq
			}
			if keep(c.Type, len(c.Values) > 0) {
				b.FilterQuery(field, c)
			}
		}
	}

	rg := root.get("range")
	for _, field := range rg.names() {
		n := rg.get(field)
		if n.get("from") != nil || n.get("to") != nil {
			b.FilterRange(field, rangeOf(n))
		}
		for _, row := range n.rows() {
			b.FilterRange(field, rangeOf(row))
		}
	}
}

func facets(b *query.Builder, f *node) {
	for _, name := range f.names() {
		n := f.get(name)
		if n.get("from") != nil || n.get("to") != nil {
			b.ActiveFacetRange(name, rangeOf(n))
			continue
		}
		b.ActiveFacet(name, n.all()...)
	}
}

func rangeOf(n *node) query.Range {
	return query.Range{From: n.first("from"), To: n.first("to")}
}

func paginate(b *query.Builder, root *node) error {
	if root.get("offset") != nil || root.get("limit") != nil {
		offset, err := optionalInt(root, "offset")
		if err != nil {
			return err
		}
		limit, err := optionalInt(root, "limit")
		if err != nil {
			return err
		}
		if limit == 0 {
			limit = DefaultPerPage
		}
		b.Offset(offset, limit)
		return nil
	}
	if root.get("page") == nil && root.get("per_page") == nil {
		return nil
	}
	page, err := optionalInt(root, "page")
	if err != nil {
		return err
	}
	perPage, err := optionalInt(root, "per_page")
	if err != nil {
		return err
	}
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	b.Page(page, perPage)
	return nil
}

func optionalInt(root *node, k string) (int, error) {
	raw := root.first(k)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", domain.ErrInvalidQuery, k, raw)
	}
	return n, nil
}

func ids(root *node, k string) ([]int64, error) {
	vals := root.nonEmpty(k)
	out := make([]int64, 0, len(vals))
	for _, raw := range vals {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q is not an id", domain.ErrInvalidQuery, k, raw)
		}
		out = append(out, id)
	}
	return out, nil
}

type tristate int

const (
	unset tristate = iota
	yes
	no
)

func flag(raw string) tristate {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return yes
	case "0", "false", "no", "off":
		return no
	default:
		return unset
	}
}
