package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ExecScript runs a multi-statement SQL script atomically. The estimator's
// view and transform scripts are executed through this path; the simple query
// protocol is required because the scripts contain multiple statements.
func (q *Queries) ExecScript(ctx context.Context, script string) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin script transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, script, pgx.QueryExecModeSimpleProtocol); err != nil {
		return fmt.Errorf("execute script: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit script transaction: %w", err)
	}
	return nil
}
