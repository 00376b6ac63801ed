package plan

import "github.com/kailas-cloud/facetdex/internal/domain/search/query"

// Part is one compiled clause awaiting accumulation.
type Part[E any] struct {
	Joiner query.Joiner
	Expr   E
}

// Fold accumulates parts left to right. The first joiner is ignored; later
// parts combine with or only when their joiner is explicitly JoinOr.
// ok is false when parts is empty.
func Fold[E any](parts []Part[E], and, or func(acc, next E) E) (E, bool) {
	var acc E
	if len(parts) == 0 {
		return acc, false
	}
	acc = parts[0].Expr
	for _, p := range parts[1:] {
		if p.Joiner == query.JoinOr {
			acc = or(acc, p.Expr)
		} else {
			acc = and(acc, p.Expr)
		}
	}
	return acc, true
}
