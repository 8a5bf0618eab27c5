package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cjw/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'INBOX',
		due_date TEXT DEFAULT NULL,
		scheduled_time TEXT DEFAULT NULL,
		duration INTEGER NOT NULL DEFAULT 30,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'user'
	);`,
	`CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL DEFAULT '',
		folder_id TEXT NOT NULL DEFAULT 'all',
		is_pinned INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'active',
		trashed_at TEXT DEFAULT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		progress REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		start_date TEXT DEFAULT NULL,
		end_date TEXT DEFAULT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS key_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plan_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		target_value REAL NOT NULL DEFAULT 0,
		current_value REAL NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		progress REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY(plan_id) REFERENCES plans(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS plan_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);`,
	`CREATE INDEX IF NOT EXISTS idx_notes_folder_state ON notes(folder_id, state);`,
	`CREATE INDEX IF NOT EXISTS idx_key_results_plan_id ON key_results(plan_id);`,
}

// Columns added after the first release; older files get them on open.
var taskColumns = map[string]string{
	"important": "ALTER TABLE tasks ADD COLUMN important INTEGER NOT NULL DEFAULT 0;",
	"urgent":    "ALTER TABLE tasks ADD COLUMN urgent INTEGER NOT NULL DEFAULT 0;",
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := s.ensureColumns(ctx, "tasks", taskColumns); err != nil {
		return err
	}
	return s.seed(ctx)
}

func (s *Store) ensureColumns(ctx context.Context, table string, required map[string]string) error {
	existing := map[string]struct{}{}
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(`+table+`);`)
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("table info scan: %w", err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("table info rows: %w", err)
	}
	rows.Close()

	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, col, err)
		}
	}
	return nil
}

func (s *Store) seed(ctx context.Context) error {
	for _, f := range storage.SystemFolders {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO folders (id, name, icon, type) VALUES (?, ?, ?, ?)`,
			f.ID, f.Name, f.Icon, string(f.Type)); err != nil {
			return fmt.Errorf("seed folders: %w", err)
		}
	}
	data, err := json.Marshal(storage.DefaultSettings())
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (id, data, updated_at) VALUES (1, ?, ?)`,
		string(data), formatTime(now())); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
