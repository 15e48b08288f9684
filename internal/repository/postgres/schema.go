package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

// Schema creates the tables the worker reads and writes. Every statement is
// idempotent.
//
//go:embed schema.sql
var Schema string

// Migrate applies Schema in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit()
}

// Tables lists the public tables Schema manages that exist in db.
func Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename IN ('verification_batches', 'leads')
		ORDER BY tablename
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
