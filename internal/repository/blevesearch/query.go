package blevesearch

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

func matchNone() query.Query { return bleve.NewMatchNoneQuery() }

func term(field, v string) query.Query {
	q := bleve.NewTermQuery(v)
	q.SetField(field)
	return q
}

// anyTerm matches any of vs in field.
func anyTerm(field string, vs ...string) query.Query {
	if len(vs) == 0 {
		return matchNone()
	}
	if len(vs) == 1 {
		return term(field, vs[0])
	}
	alts := make([]query.Query, len(vs))
	for i, v := range vs {
		alts[i] = term(field, v)
	}
	return bleve.NewDisjunctionQuery(alts...)
}

func anyID(field string, ids ...int64) query.Query {
	vs := make([]string, len(ids))
	for i, id := range ids {
		vs[i] = strconv.FormatInt(id, 10)
	}
	return anyTerm(field, vs...)
}

func prefix(field, v string) query.Query {
	q := bleve.NewPrefixQuery(v)
	q.SetField(field)
	return q
}

// pattern matches whole terms against re.
func pattern(field, re string) query.Query {
	q := bleve.NewRegexpQuery(re)
	q.SetField(field)
	return q
}

func contains(field, v string) query.Query { return pattern(field, ".*"+regexp.QuoteMeta(v)+".*") }

func suffix(field, v string) query.Query { return pattern(field, ".*"+regexp.QuoteMeta(v)) }

// numeric is an inclusive-or-not range; nil bounds are open.
func numeric(field string, lo, hi *float64, loIncl, hiIncl bool) query.Query {
	q := bleve.NewNumericRangeInclusiveQuery(lo, hi, &loIncl, &hiIncl)
	q.SetField(field)
	return q
}

// present matches every document with a value in a numeric field.
func present(field string) query.Query {
	lo := -math.MaxFloat64
	return numeric(field, &lo, nil, true, false)
}

// textRange orders terms; an empty bound is open.
func textRange(field, lo, hi string, loIncl, hiIncl bool) query.Query {
	q := bleve.NewTermRangeInclusiveQuery(lo, hi, &loIncl, &hiIncl)
	q.SetField(field)
	return q
}

func and(qs ...query.Query) query.Query {
	qs = compact(qs)
	switch len(qs) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return qs[0]
	}
	return bleve.NewConjunctionQuery(qs...)
}

func or(qs ...query.Query) query.Query {
	qs = compact(qs)
	switch len(qs) {
	case 0:
		return matchNone()
	case 1:
		return qs[0]
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// not matches every document q does not.
func not(q query.Query) query.Query {
	b := bleve.NewBooleanQuery()
	b.AddMust(bleve.NewMatchAllQuery())
	b.AddMustNot(q)
	return b
}

func compact(qs []query.Query) []query.Query {
	out := qs[:0:0]
	for _, q := range qs {
		if q != nil {
			out = append(out, q)
		}
	}
	return out
}

func lower(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
