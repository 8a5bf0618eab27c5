package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cjw/internal/storage"
)

type NoteRepo struct {
	db *sql.DB
}

const noteColumnsSQL = `id, content, folder_id, is_pinned, state, trashed_at, created_at, updated_at`

func (r *NoteRepo) GetAll(ctx context.Context) ([]storage.Note, error) {
	return listNotes(ctx, r.db, `SELECT `+noteColumnsSQL+` FROM notes ORDER BY created_at DESC, id DESC`)
}

func (r *NoteRepo) GetByID(ctx context.Context, id int64) (*storage.Note, error) {
	return getNote(ctx, r.db, id)
}

func (r *NoteRepo) Create(ctx context.Context, in storage.NoteInput) (*storage.Note, error) {
	folder := storage.NormalizeNoteFolder(in.FolderID)
	var out *storage.Note
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, folder); err != nil {
			return err
		}
		ts := formatTime(now())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notes (content, folder_id, is_pinned, state, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, in.Content, folder, boolToInt(in.IsPinned), string(storage.NoteActive), ts, ts)
		if err != nil {
			return fmt.Errorf("note insert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("note last insert id: %w", err)
		}
		out, err = getNote(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NoteRepo) Update(ctx context.Context, id int64, p storage.NotePatch) (*storage.Note, error) {
	var out *storage.Note
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := getNote(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == nil {
			return storage.NotFound("note", id)
		}
		if p.FolderID != nil {
			f := storage.NormalizeNoteFolder(*p.FolderID)
			if err := requireFolder(ctx, tx, f); err != nil {
				return err
			}
			p.FolderID = &f
		}
		storage.ApplyNotePatch(n, p)
		if _, err := tx.ExecContext(ctx, `
			UPDATE notes SET content = ?, folder_id = ?, is_pinned = ?, updated_at = ? WHERE id = ?
		`, n.Content, n.FolderID, boolToInt(n.IsPinned), formatTime(now()), id); err != nil {
			return fmt.Errorf("note update: %w", err)
		}
		out, err = getNote(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NoteRepo) Delete(ctx context.Context, id int64) error {
	ts := formatTime(now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes SET state = ?, trashed_at = ?, updated_at = ? WHERE id = ? AND state = ?
	`, string(storage.NoteTrashed), ts, ts, id, string(storage.NoteActive))
	if err != nil {
		return fmt.Errorf("note trash: %w", err)
	}
	return expectAffected(res, "note", id)
}

func (r *NoteRepo) Restore(ctx context.Context, id int64) (*storage.Note, error) {
	var out *storage.Note
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := getNote(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == nil || n.State != storage.NoteTrashed {
			return storage.NotFound("trashed note", id)
		}
		folder := n.FolderID
		if err := requireFolder(ctx, tx, folder); errors.Is(err, storage.ErrNotFound) {
			folder = storage.FolderAll
		} else if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE notes SET state = ?, trashed_at = NULL, folder_id = ?, updated_at = ? WHERE id = ?
		`, string(storage.NoteActive), folder, formatTime(now()), id); err != nil {
			return fmt.Errorf("note restore: %w", err)
		}
		out, err = getNote(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NoteRepo) DeletePermanently(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("note delete: %w", err)
	}
	return expectAffected(res, "note", id)
}

func (r *NoteRepo) GetByFolder(ctx context.Context, folderID string) ([]storage.Note, error) {
	const order = ` ORDER BY is_pinned DESC, created_at DESC, id DESC`
	base := `SELECT ` + noteColumnsSQL + ` FROM notes WHERE state = ?`
	switch folderID {
	case storage.FolderTrash:
		return listNotes(ctx, r.db, base+order, string(storage.NoteTrashed))
	case storage.FolderAll, "":
		return listNotes(ctx, r.db, base+order, string(storage.NoteActive))
	default:
		return listNotes(ctx, r.db, base+` AND folder_id = ?`+order, string(storage.NoteActive), folderID)
	}
}

func (r *NoteRepo) PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notes WHERE state = ? AND trashed_at IS NOT NULL AND trashed_at < ?
	`, string(storage.NoteTrashed), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("note purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("note purge rows affected: %w", err)
	}
	return int(n), nil
}

func listNotes(ctx context.Context, q querier, query string, args ...any) ([]storage.Note, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("note list: %w", err)
	}
	defer rows.Close()

	var out []storage.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("note list rows: %w", err)
	}
	return out, nil
}

func getNote(ctx context.Context, q querier, id int64) (*storage.Note, error) {
	row := q.QueryRowContext(ctx, `SELECT `+noteColumnsSQL+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func scanNote(row scanner) (*storage.Note, error) {
	var (
		n         storage.Note
		pinned    int
		state     string
		trashedAt sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&n.ID, &n.Content, &n.FolderID, &pinned, &state, &trashedAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("note scan: %w", err)
	}
	n.IsPinned = pinned != 0
	n.State = storage.NoteState(state)
	var err error
	if trashedAt.Valid {
		t, err := parseTime(trashedAt.String)
		if err != nil {
			return nil, err
		}
		n.TrashedAt = &t
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

type FolderRepo struct {
	db *sql.DB
}

func (r *FolderRepo) GetAll(ctx context.Context) ([]storage.Folder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, icon, type FROM folders
		ORDER BY CASE type WHEN 'system' THEN 0 ELSE 1 END, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("folder list: %w", err)
	}
	defer rows.Close()

	var out []storage.Folder
	for rows.Next() {
		var f storage.Folder
		var typ string
		if err := rows.Scan(&f.ID, &f.Name, &f.Icon, &typ); err != nil {
			return nil, fmt.Errorf("folder scan: %w", err)
		}
		f.Type = storage.FolderType(typ)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("folder rows: %w", err)
	}
	return out, nil
}

func (r *FolderRepo) GetByID(ctx context.Context, id string) (*storage.Folder, error) {
	return getFolder(ctx, r.db, id)
}

func (r *FolderRepo) Create(ctx context.Context, in storage.FolderInput) (*storage.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, storage.ValidationError{Field: "name", Reason: "required"}
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	var out *storage.Folder
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := getFolder(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ConstraintError{Reason: "folder " + id + " already exists"}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO folders (id, name, icon, type) VALUES (?, ?, ?, ?)`,
			id, name, in.Icon, string(storage.FolderUser)); err != nil {
			return fmt.Errorf("folder insert: %w", err)
		}
		out, err = getFolder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FolderRepo) Update(ctx context.Context, id string, p storage.FolderPatch) (*storage.Folder, error) {
	var out *storage.Folder
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		f, err := getFolder(ctx, tx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return storage.NotFound("folder", id)
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return storage.ValidationError{Field: "name", Reason: "required"}
			}
			f.Name = name
		}
		if p.Icon != nil {
			f.Icon = *p.Icon
		}
		if _, err := tx.ExecContext(ctx, `UPDATE folders SET name = ?, icon = ? WHERE id = ?`, f.Name, f.Icon, id); err != nil {
			return fmt.Errorf("folder update: %w", err)
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FolderRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		f, err := getFolder(ctx, tx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return storage.NotFound("folder", id)
		}
		if f.Type == storage.FolderSystem {
			return storage.ConstraintError{Reason: "system folder " + id + " cannot be deleted"}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE notes SET folder_id = ?, updated_at = ? WHERE folder_id = ?`,
			storage.FolderAll, formatTime(now()), id); err != nil {
			return fmt.Errorf("folder reassign notes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("folder delete: %w", err)
		}
		return nil
	})
}

func getFolder(ctx context.Context, q querier, id string) (*storage.Folder, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, icon, type FROM folders WHERE id = ?`, id)
	var f storage.Folder
	var typ string
	if err := row.Scan(&f.ID, &f.Name, &f.Icon, &typ); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("folder get: %w", err)
	}
	f.Type = storage.FolderType(typ)
	return &f, nil
}

func requireFolder(ctx context.Context, q querier, id string) error {
	f, err := getFolder(ctx, q, id)
	if err != nil {
		return err
	}
	if f == nil {
		return storage.NotFound("folder", id)
	}
	return nil
}
