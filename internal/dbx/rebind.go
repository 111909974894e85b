package dbx

import (
	"strings"
)

// Rebind rewrites the PostgreSQL "$N" placeholders of query for driver.
// SQLite gets the numbered "?N" form, which binds by the same index.
func Rebind(driver, query string) string {
	if driver != "sqlite" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
