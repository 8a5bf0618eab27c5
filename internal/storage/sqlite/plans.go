package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cjw/internal/storage"
)

type PlanRepo struct {
	db *sql.DB
}

const planColumnsSQL = `id, title, description, color, progress, status, start_date, end_date, created_at, updated_at`

func (r *PlanRepo) GetAll(ctx context.Context) ([]storage.Plan, error) {
	return r.list(ctx, `SELECT `+planColumnsSQL+` FROM plans ORDER BY created_at DESC, id DESC`)
}

func (r *PlanRepo) GetActive(ctx context.Context) ([]storage.Plan, error) {
	return r.list(ctx, `SELECT `+planColumnsSQL+` FROM plans WHERE status = ? ORDER BY created_at DESC, id DESC`,
		string(storage.PlanActive))
}

func (r *PlanRepo) GetByID(ctx context.Context, id int64) (*storage.Plan, error) {
	return getPlan(ctx, r.db, id)
}

func (r *PlanRepo) Create(ctx context.Context, in storage.PlanInput) (*storage.Plan, error) {
	in, err := storage.NormalizePlanInput(in)
	if err != nil {
		return nil, err
	}
	ts := formatTime(now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (title, description, color, progress, status, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?)
	`, in.Title, in.Description, in.Color, string(in.Status), nullString(in.StartDate), nullString(in.EndDate), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("plan insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("plan last insert id: %w", err)
	}
	return getPlan(ctx, r.db, id)
}

func (r *PlanRepo) Update(ctx context.Context, id int64, p storage.PlanPatch) (*storage.Plan, error) {
	var out *storage.Plan
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		pl, err := getPlan(ctx, tx, id)
		if err != nil {
			return err
		}
		if pl == nil {
			return storage.NotFound("plan", id)
		}
		if err := storage.ApplyPlanPatch(pl, p); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE plans
			SET title = ?, description = ?, color = ?, status = ?, start_date = ?, end_date = ?, updated_at = ?
			WHERE id = ?
		`, pl.Title, pl.Description, pl.Color, string(pl.Status), nullString(pl.StartDate), nullString(pl.EndDate),
			formatTime(now()), id); err != nil {
			return fmt.Errorf("plan update: %w", err)
		}
		out, err = getPlan(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PlanRepo) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM key_results WHERE plan_id = ?`, id); err != nil {
			return fmt.Errorf("plan delete key results: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("plan delete: %w", err)
		}
		return expectAffected(res, "plan", id)
	})
}

func (r *PlanRepo) ListKeyResults(ctx context.Context, planID int64) ([]storage.KeyResult, error) {
	return listKeyResults(ctx, r.db, planID)
}

func (r *PlanRepo) GetKeyResult(ctx context.Context, id int64) (*storage.KeyResult, error) {
	return getKeyResult(ctx, r.db, id)
}

// CreateKeyResult inserts the key result and folds it into the plan's
// progress in the same transaction.
func (r *PlanRepo) CreateKeyResult(ctx context.Context, in storage.KeyResultInput) (*storage.KeyResult, error) {
	in, err := storage.NormalizeKeyResultInput(in)
	if err != nil {
		return nil, err
	}
	var out *storage.KeyResult
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		pl, err := getPlan(ctx, tx, in.PlanID)
		if err != nil {
			return err
		}
		if pl == nil {
			return storage.NotFound("plan", in.PlanID)
		}
		ts := formatTime(now())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO key_results (plan_id, title, target_value, current_value, unit, progress, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, in.PlanID, in.Title, in.TargetValue, in.CurrentValue, in.Unit,
			storage.KeyResultProgress(in.CurrentValue, in.TargetValue), ts, ts)
		if err != nil {
			return fmt.Errorf("key result insert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("key result last insert id: %w", err)
		}
		if _, err := recalculate(ctx, tx, in.PlanID); err != nil {
			return err
		}
		out, err = getKeyResult(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PlanRepo) UpdateKeyResult(ctx context.Context, id int64, p storage.KeyResultPatch) (*storage.KeyResult, error) {
	var out *storage.KeyResult
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		kr, err := getKeyResult(ctx, tx, id)
		if err != nil {
			return err
		}
		if kr == nil {
			return storage.NotFound("key result", id)
		}
		if err := storage.ApplyKeyResultPatch(kr, p); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE key_results
			SET title = ?, target_value = ?, current_value = ?, unit = ?, progress = ?, updated_at = ?
			WHERE id = ?
		`, kr.Title, kr.TargetValue, kr.CurrentValue, kr.Unit, kr.Progress, formatTime(now()), id); err != nil {
			return fmt.Errorf("key result update: %w", err)
		}
		if _, err := recalculate(ctx, tx, kr.PlanID); err != nil {
			return err
		}
		out, err = getKeyResult(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PlanRepo) DeleteKeyResult(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		kr, err := getKeyResult(ctx, tx, id)
		if err != nil {
			return err
		}
		if kr == nil {
			return storage.NotFound("key result", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM key_results WHERE id = ?`, id); err != nil {
			return fmt.Errorf("key result delete: %w", err)
		}
		_, err = recalculate(ctx, tx, kr.PlanID)
		return err
	})
}

func (r *PlanRepo) RecalculatePlanProgress(ctx context.Context, planID int64) (float64, error) {
	var progress float64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		progress, err = recalculate(ctx, tx, planID)
		return err
	})
	return progress, err
}

func recalculate(ctx context.Context, q querier, planID int64) (float64, error) {
	krs, err := listKeyResults(ctx, q, planID)
	if err != nil {
		return 0, err
	}
	progress := storage.PlanProgress(krs)
	res, err := q.ExecContext(ctx, `UPDATE plans SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, formatTime(now()), planID)
	if err != nil {
		return 0, fmt.Errorf("plan progress update: %w", err)
	}
	if err := expectAffected(res, "plan", planID); err != nil {
		return 0, err
	}
	return progress, nil
}

func (r *PlanRepo) list(ctx context.Context, query string, args ...any) ([]storage.Plan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("plan list: %w", err)
	}
	defer rows.Close()

	var out []storage.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plan list rows: %w", err)
	}
	return out, nil
}

func getPlan(ctx context.Context, q querier, id int64) (*storage.Plan, error) {
	row := q.QueryRowContext(ctx, `SELECT `+planColumnsSQL+` FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPlan(row scanner) (*storage.Plan, error) {
	var (
		p                  storage.Plan
		status             string
		startDate, endDate sql.NullString
		createdAt          string
		updatedAt          string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Color, &p.Progress, &status,
		&startDate, &endDate, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("plan scan: %w", err)
	}
	p.Status = storage.PlanStatus(status)
	p.StartDate = stringPtr(startDate)
	p.EndDate = stringPtr(endDate)
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

const keyResultColumnsSQL = `id, plan_id, title, target_value, current_value, unit, progress, created_at, updated_at`

func listKeyResults(ctx context.Context, q querier, planID int64) ([]storage.KeyResult, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+keyResultColumnsSQL+` FROM key_results WHERE plan_id = ? ORDER BY id ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("key result list: %w", err)
	}
	defer rows.Close()

	var out []storage.KeyResult
	for rows.Next() {
		kr, err := scanKeyResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *kr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("key result rows: %w", err)
	}
	return out, nil
}

func getKeyResult(ctx context.Context, q querier, id int64) (*storage.KeyResult, error) {
	row := q.QueryRowContext(ctx, `SELECT `+keyResultColumnsSQL+` FROM key_results WHERE id = ?`, id)
	kr, err := scanKeyResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return kr, err
}

func scanKeyResult(row scanner) (*storage.KeyResult, error) {
	var (
		kr        storage.KeyResult
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&kr.ID, &kr.PlanID, &kr.Title, &kr.TargetValue, &kr.CurrentValue, &kr.Unit,
		&kr.Progress, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("key result scan: %w", err)
	}
	var err error
	if kr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if kr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &kr, nil
}
