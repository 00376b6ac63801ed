package sqlbuilder

import "strconv"

// JoinKind selects INNER or LEFT joins.
type JoinKind string

// Join kinds.
const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
)

// Join is one joined table.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    Expr
}

type order struct {
	expr Expr
	desc bool
}

// Select is a fluent SELECT statement.
type Select struct {
	columns []string
	from    string
	alias   string
	joins   []Join
	where   Expr
	groupBy []string
	orderBy []order
	limit   int
	offset  int
}

// NewSelect starts a SELECT of columns.
func NewSelect(columns ...string) *Select {
	return &Select{columns: columns, limit: -1, offset: -1}
}

// From sets the source table.
func (s *Select) From(table, alias string) *Select {
	s.from, s.alias = table, alias
	return s
}

// Join adds joins in order.
func (s *Select) Join(joins ...Join) *Select {
	s.joins = append(s.joins, joins...)
	return s
}

// Where ANDs e into the WHERE clause. nil is ignored.
func (s *Select) Where(e Expr) *Select {
	s.where = And(s.where, e)
	return s
}

// GroupBy sets GROUP BY columns.
func (s *Select) GroupBy(cols ...string) *Select {
	s.groupBy = append(s.groupBy, cols...)
	return s
}

// OrderBy appends an ordering expression.
func (s *Select) OrderBy(e Expr, desc bool) *Select {
	s.orderBy = append(s.orderBy, order{expr: e, desc: desc})
	return s
}

// Limit sets LIMIT; negative clears it.
func (s *Select) Limit(n int) *Select {
	s.limit = n
	return s
}

// Offset sets OFFSET; negative clears it.
func (s *Select) Offset(n int) *Select {
	s.offset = n
	return s
}

// Columns replaces the selected columns.
func (s *Select) Columns(cols ...string) *Select {
	s.columns = cols
	return s
}

// Clone returns an independent copy sharing immutable expressions.
func (s *Select) Clone() *Select {
	c := *s
	c.columns = append([]string(nil), s.columns...)
	c.joins = append([]Join(nil), s.joins...)
	c.groupBy = append([]string(nil), s.groupBy...)
	c.orderBy = append([]order(nil), s.orderBy...)
	return &c
}

// WhereExpr returns the accumulated WHERE expression.
func (s *Select) WhereExpr() Expr { return s.where }

// Joins returns the joins.
func (s *Select) Joins() []Join { return s.joins }

// Build renders the statement for d.
func (s *Select) Build(d Dialect) (string, []any) {
	w := &writer{d: d}
	s.render(w)
	return w.b.String(), w.args
}

func (s *Select) render(w *writer) {
	w.write("SELECT ")
	for i, c := range s.columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(c)
	}
	w.write(" FROM " + s.from)
	if s.alias != "" {
		w.write(" " + s.alias)
	}
	for _, j := range s.joins {
		w.write(" " + string(j.Kind) + " " + j.Table)
		if j.Alias != "" {
			w.write(" " + j.Alias)
		}
		w.write(" ON ")
		if j.On == nil {
			w.write("1 = 1")
		} else {
			j.On.render(w)
		}
	}
	if s.where != nil {
		w.write(" WHERE ")
		s.where.render(w)
	}
	if len(s.groupBy) > 0 {
		w.write(" GROUP BY ")
		for i, c := range s.groupBy {
			if i > 0 {
				w.write(", ")
			}
			w.write(c)
		}
	}
	for i, o := range s.orderBy {
		if i == 0 {
			w.write(" ORDER BY ")
		} else {
			w.write(", ")
		}
		o.expr.render(w)
		if o.desc {
			w.write(" DESC")
		} else {
			w.write(" ASC")
		}
	}
	if s.limit >= 0 {
		w.write(" LIMIT " + strconv.Itoa(s.limit))
	}
	if s.offset > 0 {
		w.write(" OFFSET " + strconv.Itoa(s.offset))
	}
}
