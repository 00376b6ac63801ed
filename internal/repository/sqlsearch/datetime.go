package sqlsearch

import (
	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// dateTimes folds created/modified rows. A malformed value compiles to an
// always-false predicate ANDed in whatever its joiner.
func (c *compiler) dateTimes(rows []query.DateTimeClause) sb.Expr {
	parts := make([]plan.Part[sb.Expr], 0, len(rows))
	for _, row := range rows {
		e := c.dateTime(row)
		joiner := row.Joiner
		if _, bad := e.(sb.FalseExpr); bad {
			joiner = query.JoinAnd
		}
		parts = append(parts, plan.Part[sb.Expr]{Joiner: joiner, Expr: e})
	}
	e, _ := plan.Fold(parts, andExpr, orExpr)
	return e
}

func (c *compiler) dateTime(row query.DateTimeClause) sb.Expr {
	col := "r." + string(row.Field)
	switch row.Type {
	case comparison.Ex:
		return sb.IsNotNull(col)
	case comparison.Nex:
		return sb.IsNull(col)
	}

	first, last, ok := c.fieldNorm.Span(row.Value)
	if !ok {
		return sb.False("incorrect value: " + string(row.Field) + " " + string(row.Type) + " " + row.Value)
	}
	// Both dialects accept the canonical "YYYY-MM-DD HH:MM:SS" form.
	lo, hi := first.String(), last.String()
	switch row.Type {
	case comparison.Gt:
		return sb.Compare(col, ">", hi)
	case comparison.Gte:
		return sb.Compare(col, ">=", lo)
	case comparison.Lt:
		return sb.Compare(col, "<", lo)
	case comparison.Lte:
		return sb.Compare(col, "<=", hi)
	case comparison.Eq:
		return c.span(col, lo == hi, lo, hi)
	case comparison.Neq:
		return sb.Not(c.span(col, lo == hi, lo, hi))
	}
	return sb.False("unsupported date comparison: " + string(row.Type))
}

func (c *compiler) span(col string, exact bool, lo, hi string) sb.Expr {
	if exact {
		return sb.Eq(col, lo)
	}
	return sb.Raw(col+" BETWEEN ? AND ?", lo, hi)
}

func andExpr(a, b sb.Expr) sb.Expr { return sb.And(a, b) }

func orExpr(a, b sb.Expr) sb.Expr { return sb.Or(a, b) }
