package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and :memory:
	// databases are per-connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		login TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		total_score INTEGER NOT NULL DEFAULT 0,
		success_rate INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mentors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		login TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mentor_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		time_limit_ms INTEGER NOT NULL,
		questions TEXT NOT NULL DEFAULT '[]',
		max_score INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		mentor_id INTEGER,
		test_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		max_score INTEGER NOT NULL,
		percentage INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mentor_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		test_id INTEGER NOT NULL,
		assigned_at DATETIME NOT NULL,
		deadline DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		completed_at DATETIME,
		result_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient_id INTEGER NOT NULL,
		recipient_kind TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		category TEXT NOT NULL,
		related_id INTEGER,
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS achievements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		condition_type TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS student_achievements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		achievement_id INTEGER NOT NULL,
		earned_at DATETIME NOT NULL,
		UNIQUE(student_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mentor_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS learning_paths (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mentor_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		test_ids TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS path_assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		assigned_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS study_materials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mentor_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		principal_id INTEGER NOT NULL,
		principal_kind TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_student ON results(student_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_student ON assignments(student_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_mentor ON assignments(mentor_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, recipient_kind);
	`
	_, err := s.db.Exec(schema)
	return err
}
