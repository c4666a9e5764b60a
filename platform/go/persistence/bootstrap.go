package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/zenGate-Global/inspection-scheduler/database"
)

// BootstrapSchema applies the scheduler DDL in a single transaction, in
// dependency order:
//  1. schema/accounts.sql
//  2. schema/inspectors.sql
//  3. schema/inspections.sql
//  4. schema/property_managers.sql
//
// SQL is embedded at build time so binaries stay self-contained. The helper is
// idempotent and intended for service startup and tests.
func BootstrapSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}

	var statements []string
	statements = append(statements, splitStatements(sqlassets.AccountsSQL)...)
	statements = append(statements, splitStatements(sqlassets.InspectorsSQL)...)
	statements = append(statements, splitStatements(sqlassets.InspectionsSQL)...)
	statements = append(statements, splitStatements(sqlassets.PropertyManagersSQL)...)

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements breaks an embedded SQL asset into individual statements.
// The DDL files never contain semicolons inside string literals, so a plain
// split is sufficient.
func splitStatements(sql string) []string {
	raw := strings.Split(sql, ";")
	statements := make([]string, 0, len(raw))
	for _, stmt := range raw {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
