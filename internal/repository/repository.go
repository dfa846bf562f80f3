// Package repository holds the Postgres data access layer. Each entity gets
// its own repository over the shared *sql.DB; no ORM, plain parameterized SQL.
package repository

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// idArray adapts a uuid slice for ANY($1) queries.
func idArray(ids []uuid.UUID) interface{} {
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = id.String()
	}
	return pq.Array(ss)
}
