package sqlsearch

import (
	"fmt"
	"strconv"
	"strings"

	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// property compiles one normalized value clause. Positive types assert that
// a joined value row exists; negative types left-join the rows matching the
// positive form and require that none was found.
func (c *compiler) property(cl query.Clause) sb.Expr {
	alias := c.nextAlias()
	positive := cl.Type.Positive()

	if shape := positive.Shape(); shape == comparison.ShapeLinked || shape == comparison.ShapeLinkedBy {
		return c.linked(alias, cl, positive)
	}

	match := c.valueMatch(alias, cl.Field, positive, cl.Values)
	if f, ok := match.(sb.FalseExpr); ok {
		return f
	}
	on := sb.And(
		sb.Raw(alias+".resource_id = r.id"),
		c.fieldScope(alias+".property_id", cl),
		c.valueVisibility(alias),
		match,
	)
	c.join(sb.Join{Kind: sb.LeftJoin, Table: "value", Alias: alias, On: on})
	return presence(alias, cl.Type.IsPositive())
}

func presence(alias string, positive bool) sb.Expr {
	if positive {
		return sb.IsNotNull(alias + ".id")
	}
	return sb.IsNull(alias + ".id")
}

// fieldScope restricts the value rows to the named property, or to every used
// property minus the excluded ones. An empty allowed set searches anywhere.
func (c *compiler) fieldScope(col string, cl query.Clause) sb.Expr {
	if cl.Field != "" {
		id, ok := c.tables.PropertyID(cl.Field)
		if !ok {
			return sb.Eq(col, 0)
		}
		return sb.Eq(col, id)
	}
	if len(cl.Except) == 0 {
		return nil
	}
	excluded := make(map[int64]struct{}, len(cl.Except))
	for _, f := range cl.Except {
		if id, ok := c.tables.PropertyID(f); ok {
			excluded[id] = struct{}{}
		}
	}
	var allowed []int64
	for _, id := range c.tables.Used() {
		if _, skip := excluded[id]; !skip {
			allowed = append(allowed, id)
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	return sb.In(col, sb.Ints(allowed)...)
}

func (c *compiler) valueVisibility(alias string) sb.Expr {
	if !c.public {
		return nil
	}
	return sb.Eq(alias+".is_public", true)
}

// valueMatch is the positive predicate on one value row. Several values
// match when any of them does. Text and list comparisons ignore case.
func (c *compiler) valueMatch(alias, field string, t comparison.Type, values []string) sb.Expr {
	switch t.Shape() {
	case comparison.ShapeExists:
		return nil
	case comparison.ShapeList:
		linked := sb.NewSelect(alias + "t.id").From("resource", alias+"t").
			Where(sb.InFold(alias+"t.title", sb.Strings(values)...))
		return sb.Or(
			sb.InFold(alias+".value", sb.Strings(values)...),
			sb.InFold(alias+".uri", sb.Strings(values)...),
			sb.InSelect(alias+".value_resource_id", linked),
		)
	case comparison.ShapeResource:
		ids, ok := c.resourceIDs(field, values)
		if !ok {
			return sb.False(incorrect(values))
		}
		return sb.In(alias+".value_resource_id", sb.Ints(ids)...)
	case comparison.ShapeDataType:
		return sb.In(alias+".type", sb.Strings(values)...)
	case comparison.ShapeRange:
		var alts []sb.Expr
		for _, v := range values {
			alts = append(alts, c.rangeMatch(alias+".value", t, v))
		}
		return sb.Or(alts...)
	}

	var alts []sb.Expr
	for _, v := range values {
		alts = append(alts, c.textMatch(alias, t.Shape(), v))
	}
	return sb.Or(alts...)
}

// textMatch compares the literal, the uri and the title of a linked resource,
// ignoring case.
func (c *compiler) textMatch(alias string, shape comparison.Shape, v string) sb.Expr {
	var cmp func(col string) sb.Expr
	esc := sb.EscapeLike(v)
	switch shape {
	case comparison.ShapeExact:
		cmp = func(col string) sb.Expr { return sb.EqFold(col, v) }
	case comparison.ShapeContains:
		cmp = func(col string) sb.Expr { return sb.Like(col, "%"+esc+"%") }
	case comparison.ShapePrefix:
		cmp = func(col string) sb.Expr { return sb.Like(col, esc+"%") }
	case comparison.ShapeSuffix:
		cmp = func(col string) sb.Expr { return sb.Like(col, "%"+esc) }
	default:
		return sb.False(fmt.Sprintf("unsupported shape for %q", v))
	}
	linked := sb.NewSelect(alias + "t.id").From("resource", alias+"t").Where(cmp(alias + "t.title"))
	return sb.Or(
		cmp(alias+".value"),
		cmp(alias+".uri"),
		sb.InSelect(alias+".value_resource_id", linked),
	)
}

// rangeMatch orders a value against v. Numeric values compare numerically
// when the stored value is numeric; otherwise a date-time v compares against
// its ISO boundary, and anything else compares as a string.
func (c *compiler) rangeMatch(col string, t comparison.Type, v string) sb.Expr {
	op := rangeOps[t]
	text := sb.Compare(col, op, v)
	if dt, err := datetime.Parse(v, c.valueBounds); err == nil {
		bound := dt.Prefix()
		if t == comparison.Gt || t == comparison.Lte {
			bound = dt.Last().ISO()
		}
		text = sb.Compare(col, op, bound)
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return text
	}
	num := c.d.NumericCast(col)
	return sb.Or(
		sb.Compare(num, op, n),
		sb.And(sb.IsNull(num), text),
	)
}

var rangeOps = map[comparison.Type]string{
	comparison.Gt:  ">",
	comparison.Gte: ">=",
	comparison.Lt:  "<",
	comparison.Lte: "<=",
}

// linked compiles lex/lres and their reciprocals: a correlated subquery over
// the values of other resources pointing at this one. The property scope
// applies to those values, inside the subquery.
func (c *compiler) linked(alias string, cl query.Clause, positive comparison.Type) sb.Expr {
	sub := alias + "s"
	pointing := sb.NewSelect(sub + ".value_resource_id").From("value", sub).
		Where(sb.IsNotNull(sub + ".value_resource_id")).
		Where(c.fieldScope(sub+".property_id", cl)).
		Where(c.valueVisibility(sub))
	if positive == comparison.Lres {
		ids, ok := c.resourceIDs(cl.Field, cl.Values)
		if !ok {
			return sb.False(incorrect(cl.Values))
		}
		pointing.Where(sb.In(sub+".resource_id", sb.Ints(ids)...))
	}
	on := sb.And(sb.Raw(alias+".id = r.id"), sb.InSelect(alias+".id", pointing))
	c.join(sb.Join{Kind: sb.LeftJoin, Table: "resource", Alias: alias, On: on})
	return presence(alias, cl.Type.IsPositive())
}

// resourceIDs parses resource id values. No numeric value at all is
// incorrect; some non-numeric ones are dropped with a warning.
func (c *compiler) resourceIDs(field string, values []string) ([]int64, bool) {
	ids, rejected := plan.ResourceIDs(values)
	if len(ids) == 0 {
		return nil, false
	}
	if len(rejected) > 0 {
		c.warnings = append(c.warnings, plan.IgnoredResourceIDs(field, rejected))
	}
	return ids, true
}

func incorrect(values []string) string {
	return "incorrect value: " + strings.Join(values, ", ")
}
