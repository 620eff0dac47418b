package db

import "strings"

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if strings.ToLower(p.Order) == "asc" {
		p.Order = "asc"
	} else {
		p.Order = "desc"
	}
	return p
}

// NextOffset returns 0 once the last page has been served.
func (p Page) NextOffset(total int64) int {
	next := p.Offset + p.Limit
	if next >= int(total) {
		return 0 // 0=終端
	}
	return next
}
