package search

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPerPage = 30
	// DefaultEstimateThreshold is the row count above which totals come from
	// the planner estimate instead of COUNT(*).
	DefaultEstimateThreshold = 10000
)

// Total types reported alongside a count.
const (
	TotalExact     = "exact"
	TotalEstimated = "estimated"
)

// Page is a normalized pagination request. Cursor pagination wins over page
// numbers when both are given.
type Page struct {
	PerPage int
	Page    int
	After   uint
}

// PageOf normalizes r against maxPerPage.
func PageOf(r Request, maxPerPage int) (Page, error) {
	p := Page{PerPage: r.PerPage, Page: r.Page}
	if maxPerPage <= 0 {
		maxPerPage = 100
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if c := strings.TrimSpace(r.Cursor); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil || id == 0 {
			return Page{}, fmt.Errorf("invalid cursor %q", r.Cursor)
		}
		p.After = uint(id)
		p.Page = 1
	}
	return p, nil
}

// Apply orders by id descending and limits one extra row so callers can tell
// whether another page exists.
func (p Page) Apply(db *gorm.DB, table string) *gorm.DB {
	q := db.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: "id"}, Desc: true})
	if p.After > 0 {
		q = q.Where(clause.Expr{SQL: table + ".id < ?", Vars: []any{p.After}})
	} else if p.Page > 1 {
		q = q.Offset((p.Page - 1) * p.PerPage)
	}
	return q.Limit(p.PerPage + 1)
}

// NextCursor returns the cursor for the page after ids (already trimmed to
// PerPage) or "" when there is none.
func NextCursor(ids []uint, more bool) string {
	if !more || len(ids) == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(ids[len(ids)-1]), 10)
}

// Scoped applies a compiled predicate to db. A nil predicate leaves db as is.
func Scoped(db *gorm.DB, where clause.Expression) *gorm.DB {
	if where == nil {
		return db
	}
	return db.Clauses(clause.Where{Exprs: []clause.Expression{where}})
}
