package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Printf reports progress to the operator.
type Printf func(format string, args ...any)

// RunMigration applies the schema. Every statement is idempotent so the job
// can be re-run against an existing database.
func RunMigration(ctx context.Context, db *sqlx.DB, printf Printf) error {
	printf("Running hotelbook Postgres migrations\n")

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	printf("Ensured tables rooms, profiles, bookings and the overlap exclusion constraint\n")
	return nil
}

func Schema() string {
	return schema
}
