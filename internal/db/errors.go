package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a query matches no row.
var ErrNotFound = errors.New("db: not found")

// ValidationError carries per-field messages for writes rejected by
// column constraints. Handlers map it to a 400 response.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "db: validation failed: " + strings.Join(e.Messages, "; ")
}

// constraintError converts constraint violations raised by Postgres
// into a ValidationError naming the offending JSON field. Anything
// else passes through unchanged.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation:
		return &ValidationError{Messages: []string{"userId must reference an existing user"}}
	case pgerrcode.NotNullViolation:
		field := jsonField(pgErr.ColumnName)
		return &ValidationError{Messages: []string{fmt.Sprintf("%s is required", field)}}
	case pgerrcode.CheckViolation:
		return &ValidationError{Messages: []string{fmt.Sprintf("constraint %s failed", pgErr.ConstraintName)}}
	}

	return err
}

func jsonField(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}
