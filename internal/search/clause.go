package search

import (
	"gorm.io/gorm/clause"
)

func expr(sql string, vars ...any) clause.Expression {
	return clause.Expr{SQL: sql, Vars: vars}
}

// and/or never build single-element condition lists, which gorm renders as a
// bare OR/AND joint.
func and(exprs ...clause.Expression) clause.Expression {
	exprs = compact(exprs)
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return clause.AndConditions{Exprs: exprs}
}

func or(exprs ...clause.Expression) clause.Expression {
	exprs = compact(exprs)
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return clause.OrConditions{Exprs: exprs}
}

func not(e clause.Expression) clause.Expression {
	if e == nil {
		return nil
	}
	return clause.Expr{SQL: "NOT (?)", Vars: []any{e}}
}

func compact(exprs []clause.Expression) []clause.Expression {
	out := exprs[:0:0]
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
