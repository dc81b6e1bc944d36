// Package pgrepos implements the core repositories over PostgreSQL with sqlx.
package pgrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// trapNoRowsErr converts sql.ErrNoRows into the given domain sentinel.
func trapNoRowsErr(err, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

func newRowID() string { return uuid.NewString() }

// orderBy renders an ORDER BY clause, falling back to `dflt` when no
// ordering was requested.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
