package repository

import "strings"

const (
	defaultPage  = 1
	maxPageLimit = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit, using def when limit is unset.
func (p Page) Normalize(def int) Page {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Sort is a whitelisted ORDER BY clause.
type Sort struct {
	By    string
	Order string
}

// clause resolves the sort against allowed columns, falling back to def.
func (s Sort) clause(allowed map[string]string, def string) string {
	col, ok := allowed[s.By]
	if !ok {
		col = allowed[def]
	}
	dir := "DESC"
	if strings.EqualFold(s.Order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

// NameCount is a generic group-by row.
type NameCount struct {
	Name  string `json:"name"`
	Total int64  `json:"count" gorm:"column:total"`
}

// likePattern wraps term for a case-insensitive substring match.
func likePattern(term string) string {
	return "%" + strings.ToLower(term) + "%"
}
