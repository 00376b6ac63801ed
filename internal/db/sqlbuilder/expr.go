package sqlbuilder

import (
	"strings"
)

// Expr is a boolean SQL expression.
type Expr interface {
	render(w *writer)
}

type writer struct {
	b    strings.Builder
	args []any
	d    Dialect
}

// write copies sql, replacing each "?" with the dialect placeholder bound to
// the next argument.
func (w *writer) write(sql string, args ...any) {
	next := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '?' {
			w.b.WriteByte(sql[i])
			continue
		}
		var arg any
		if next < len(args) {
			arg = args[next]
		}
		next++
		w.args = append(w.args, arg)
		w.b.WriteString(w.d.Placeholder(len(w.args)))
	}
}

// Render returns the SQL text and arguments of e.
func Render(e Expr, d Dialect) (string, []any) {
	w := &writer{d: d}
	e.render(w)
	return w.b.String(), w.args
}

type raw struct {
	sql  string
	args []any
}

func (r raw) render(w *writer) { w.write(r.sql, r.args...) }

// Raw wraps a SQL fragment using "?" markers for args.
func Raw(sql string, args ...any) Expr { return raw{sql: sql, args: args} }

// Eq renders "col = ?".
func Eq(col string, v any) Expr { return raw{sql: col + " = ?", args: []any{v}} }

// EqFold renders the case-insensitive "LOWER(col) = LOWER(?)".
func EqFold(col string, v any) Expr {
	return raw{sql: "LOWER(" + col + ") = LOWER(?)", args: []any{v}}
}

// Compare renders "col op ?". op must be one of = <> < <= > >=.
func Compare(col, op string, v any) Expr {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
	default:
		panic("sqlbuilder: invalid operator " + op)
	}
	return raw{sql: col + " " + op + " ?", args: []any{v}}
}

type in struct {
	col  string
	vals []any
	fold bool
}

func (e in) render(w *writer) {
	marker := "?"
	if e.fold {
		w.write("LOWER(" + e.col + ") IN (")
		marker = "LOWER(?)"
	} else {
		w.write(e.col + " IN (")
	}
	for i, v := range e.vals {
		if i > 0 {
			w.write(", ")
		}
		w.write(marker, v)
	}
	w.write(")")
}

// In renders "col IN (?, ...)". An empty list never matches.
func In(col string, vals ...any) Expr {
	if len(vals) == 0 {
		return False("empty list for " + col)
	}
	return in{col: col, vals: vals}
}

// InFold is In compared case-insensitively on both sides.
func InFold(col string, vals ...any) Expr {
	if len(vals) == 0 {
		return False("empty list for " + col)
	}
	return in{col: col, vals: vals, fold: true}
}

// Strings converts values for In.
func Strings(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// Ints converts values for In.
func Ints(vals []int64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

type like struct {
	col     string
	pattern string
}

func (e like) render(w *writer) {
	w.write(e.col+" "+w.d.Like()+" ? ESCAPE '\\'", e.pattern)
}

// Like renders a case-insensitive LIKE with "\" as escape character.
// pattern must already be escaped with EscapeLike.
func Like(col, pattern string) Expr { return like{col: col, pattern: pattern} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE wildcard characters of s.
func EscapeLike(s string) string { return likeEscaper.Replace(s) }

// IsNull renders "col IS NULL".
func IsNull(col string) Expr { return raw{sql: col + " IS NULL"} }

// IsNotNull renders "col IS NOT NULL".
func IsNotNull(col string) Expr { return raw{sql: col + " IS NOT NULL"} }

type junction struct {
	op    string
	exprs []Expr
}

func (j junction) render(w *writer) {
	if len(j.exprs) == 1 {
		j.exprs[0].render(w)
		return
	}
	w.write("(")
	for i, e := range j.exprs {
		if i > 0 {
			w.write(" " + j.op + " ")
		}
		e.render(w)
	}
	w.write(")")
}

func join(op string, exprs []Expr) Expr {
	var flat []Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if j, ok := e.(junction); ok && j.op == op {
			flat = append(flat, j.exprs...)
			continue
		}
		flat = append(flat, e)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return junction{op: op, exprs: flat}
}

// And combines exprs with AND, skipping nils. Returns nil when all are nil.
func And(exprs ...Expr) Expr { return join("AND", exprs) }

// Or combines exprs with OR, skipping nils. Returns nil when all are nil.
func Or(exprs ...Expr) Expr { return join("OR", exprs) }

type not struct{ e Expr }

func (n not) render(w *writer) {
	w.write("NOT (")
	n.e.render(w)
	w.write(")")
}

// Not negates e.
func Not(e Expr) Expr { return not{e: e} }

// FalseExpr never matches. Reason carries the diagnostic sentinel.
type FalseExpr struct {
	Reason string
}

func (FalseExpr) render(w *writer) { w.write("1 = 0") }

// False returns an always-false expression tagged with reason.
func False(reason string) Expr { return FalseExpr{Reason: reason} }

type exists struct{ s *Select }

func (e exists) render(w *writer) {
	w.write("EXISTS (")
	e.s.render(w)
	w.write(")")
}

// Exists renders "EXISTS (subquery)".
func Exists(s *Select) Expr { return exists{s: s} }

type inSelect struct {
	col string
	s   *Select
}

func (e inSelect) render(w *writer) {
	w.write(e.col + " IN (")
	e.s.render(w)
	w.write(")")
}

// InSelect renders "col IN (subquery)".
func InSelect(col string, s *Select) Expr { return inSelect{col: col, s: s} }

// Reasons collects the sentinels of every FalseExpr in e.
func Reasons(e Expr) []string {
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case FalseExpr:
			out = append(out, v.Reason)
		case junction:
			for _, c := range v.exprs {
				walk(c)
			}
		case not:
			walk(v.e)
		}
	}
	if e != nil {
		walk(e)
	}
	return out
}
