// Package db owns the relational schema.
package db

import (
	"context"
	_ "embed"
	"fmt"

	"genads/internal/infra"
)

//go:embed schema.sql
var schemaSQL string

// ActiveJobIndex is the partial unique index allowing one non-terminal job
// per project.
const ActiveJobIndex = "generation_jobs_one_active"

// Schema returns the embedded DDL.
func Schema() string { return schemaSQL }

// EnsureSchema applies the idempotent DDL.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	if _, err := sql.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
