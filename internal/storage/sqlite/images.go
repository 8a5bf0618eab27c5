package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cjw/internal/storage"
)

type PlanImageRepo struct {
	db *sql.DB
}

const imageColumnsSQL = `id, title, image_path, created_at, sort_order`

func (r *PlanImageRepo) GetAll(ctx context.Context) ([]storage.PlanImage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+imageColumnsSQL+` FROM plan_images ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("plan image list: %w", err)
	}
	defer rows.Close()

	var out []storage.PlanImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plan image rows: %w", err)
	}
	return out, nil
}

func (r *PlanImageRepo) GetByID(ctx context.Context, id int64) (*storage.PlanImage, error) {
	return getImage(ctx, r.db, id)
}

func (r *PlanImageRepo) Create(ctx context.Context, in storage.PlanImageInput) (*storage.PlanImage, error) {
	if in.ImagePath == "" {
		return nil, storage.ValidationError{Field: "image_path", Reason: "required"}
	}
	var out *storage.PlanImage
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO plan_images (title, image_path, created_at, sort_order)
			VALUES (?, ?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM plan_images))
		`, in.Title, in.ImagePath, formatTime(now()))
		if err != nil {
			return fmt.Errorf("plan image insert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("plan image last insert id: %w", err)
		}
		out, err = getImage(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PlanImageRepo) Update(ctx context.Context, id int64, p storage.PlanImagePatch) (*storage.PlanImage, error) {
	var out *storage.PlanImage
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		img, err := getImage(ctx, tx, id)
		if err != nil {
			return err
		}
		if img == nil {
			return storage.NotFound("plan image", id)
		}
		if p.Title != nil {
			img.Title = *p.Title
		}
		if p.ImagePath != nil {
			img.ImagePath = *p.ImagePath
		}
		if _, err := tx.ExecContext(ctx, `UPDATE plan_images SET title = ?, image_path = ? WHERE id = ?`,
			img.Title, img.ImagePath, id); err != nil {
			return fmt.Errorf("plan image update: %w", err)
		}
		out = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PlanImageRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plan_images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("plan image delete: %w", err)
	}
	return expectAffected(res, "plan image", id)
}

func (r *PlanImageRepo) Reorder(ctx context.Context, ids []int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for pos, id := range ids {
			res, err := tx.ExecContext(ctx, `UPDATE plan_images SET sort_order = ? WHERE id = ?`, pos, id)
			if err != nil {
				return fmt.Errorf("plan image reorder: %w", err)
			}
			if err := expectAffected(res, "plan image", id); err != nil {
				return err
			}
		}
		return nil
	})
}

func getImage(ctx context.Context, q querier, id int64) (*storage.PlanImage, error) {
	row := q.QueryRowContext(ctx, `SELECT `+imageColumnsSQL+` FROM plan_images WHERE id = ?`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return img, err
}

func scanImage(row scanner) (*storage.PlanImage, error) {
	var img storage.PlanImage
	var createdAt string
	if err := row.Scan(&img.ID, &img.Title, &img.ImagePath, &createdAt, &img.SortOrder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("plan image scan: %w", err)
	}
	var err error
	if img.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &img, nil
}

type SettingsRepo struct {
	db *sql.DB
}

func (r *SettingsRepo) Get(ctx context.Context) (storage.Settings, error) {
	return getSettings(ctx, r.db)
}

func (r *SettingsRepo) Update(ctx context.Context, patch map[string]any) (storage.Settings, error) {
	var out storage.Settings
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := getSettings(ctx, tx)
		if err != nil {
			return err
		}
		out, err = storage.MergeSettings(cur, patch)
		if err != nil {
			return err
		}
		return putSettings(ctx, tx, out)
	})
	if err != nil {
		return storage.Settings{}, err
	}
	return out, nil
}

func (r *SettingsRepo) Set(ctx context.Context, path string, value any) (storage.Settings, error) {
	patch, err := storage.PathPatch(path, value)
	if err != nil {
		return storage.Settings{}, err
	}
	return r.Update(ctx, patch)
}

func (r *SettingsRepo) Replace(ctx context.Context, s storage.Settings) error {
	return putSettings(ctx, r.db, s)
}

func getSettings(ctx context.Context, q querier) (storage.Settings, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DefaultSettings(), nil
	}
	if err != nil {
		return storage.Settings{}, fmt.Errorf("settings get: %w", err)
	}
	s := storage.DefaultSettings()
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return storage.Settings{}, fmt.Errorf("settings decode: %w", err)
	}
	return s, nil
}

func putSettings(ctx context.Context, q querier, s storage.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings encode: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, string(data), formatTime(now()))
	if err != nil {
		return fmt.Errorf("settings put: %w", err)
	}
	return nil
}
