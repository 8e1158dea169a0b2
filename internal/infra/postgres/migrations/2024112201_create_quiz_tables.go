package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var (
	//go:embed 0001_create_quiz_tables.up.sql
	createQuizTablesSQL string
	//go:embed 0001_create_quiz_tables.down.sql
	dropQuizTablesSQL string
)

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuizTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, dropQuizTablesSQL)
			return err
		},
	)
}
