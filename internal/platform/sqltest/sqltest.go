// Package sqltest renders gorm statements without a database connection.
package sqltest

import (
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DryRun returns a postgres-dialect session that builds SQL but never
// connects.
func DryRun(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=dry dbname=dry sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("open dry-run db: %v", err)
	}
	return db
}

// Render returns the SQL and bind variables of a SELECT over table filtered
// by build.
func Render(tb testing.TB, table string, build func(*gorm.DB) *gorm.DB) (string, []any) {
	tb.Helper()
	var rows []map[string]any
	stmt := build(DryRun(tb).Table(table)).Find(&rows).Statement
	return stmt.SQL.String(), stmt.Vars
}
