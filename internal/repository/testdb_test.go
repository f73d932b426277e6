package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqlite has no jsonb or uuid types, so tables are created by hand
var testDDL = []string{
	`CREATE TABLE forms (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		version INTEGER NOT NULL,
		latest_version INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL,
		schema TEXT,
		created_by TEXT
	)`,
	`CREATE TABLE form_versions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME,
		form_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		schema TEXT,
		created_by TEXT,
		UNIQUE (form_id, version)
	)`,
	`CREATE TABLE submissions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME,
		form_id TEXT NOT NULL,
		form_version INTEGER NOT NULL,
		submission_data TEXT,
		created_by TEXT NOT NULL,
		status TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		reviewed_by TEXT,
		reviewed_at DATETIME,
		review_note TEXT
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME,
		type TEXT NOT NULL,
		audience TEXT NOT NULL,
		recipient_id TEXT,
		actor_id TEXT,
		title TEXT NOT NULL,
		message TEXT,
		action TEXT,
		priority TEXT,
		form_id TEXT,
		form_name TEXT,
		submission_id TEXT,
		client_name TEXT,
		metadata TEXT,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		read_at DATETIME
	)`,
	`CREATE TABLE attachments (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME,
		form_id TEXT NOT NULL,
		field_id TEXT NOT NULL,
		submission_id TEXT,
		status TEXT NOT NULL DEFAULT 'TEMP',
		file_name TEXT NOT NULL,
		file_key TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		uploaded_by TEXT NOT NULL,
		expires_at DATETIME
	)`,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	for _, stmt := range testDDL {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
	}
	return db
}
