/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dbtest opens migrated in-memory databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/recruitd/internal/db"
)

// Open returns a migrated sqlite :memory: database. The pool is capped at one
// connection so every goroutine sees the same database and transactions are
// serialized.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	return open(t, ":memory:", 1)
}

// OpenShared returns a migrated file-backed sqlite database reachable over
// conns pooled connections. Transactions begin IMMEDIATE and wait on the busy
// timeout, so concurrent callers contend on separate connections while
// sqlite still admits one writer at a time.
func OpenShared(t testing.TB, conns int) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate"
	return open(t, dsn, conns)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.RegisterCallbacks(database); err != nil {
		t.Fatalf("failed to register callbacks: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return database
}
