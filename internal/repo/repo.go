package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"alchemist/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) conn(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.DB
}

// ReplaceDataset stores rows as the current content of kind, replacing any previous import.
func (r Repo) ReplaceDataset(ctx context.Context, tx *sql.Tx, kind domain.DatasetKind, sourceName string, rows []domain.Record, updatedAt string) error {
	if rows == nil {
		rows = []domain.Record{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal %s rows: %w", kind, err)
	}
	_, err = r.conn(tx).ExecContext(ctx, `
INSERT INTO datasets(kind,source_name,row_count,rows_json,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(kind) DO UPDATE SET source_name=excluded.source_name,row_count=excluded.row_count,rows_json=excluded.rows_json,updated_at=excluded.updated_at`,
		string(kind), nullable(sourceName), len(rows), string(data), updatedAt)
	return err
}

// GetDataset returns the stored rows of kind, or ErrNotFound if it was never imported.
func (r Repo) GetDataset(ctx context.Context, kind domain.DatasetKind) (domain.DatasetInfo, []domain.Record, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT kind,COALESCE(source_name,''),row_count,rows_json,updated_at FROM datasets WHERE kind=?`, string(kind))
	var (
		info domain.DatasetInfo
		raw  string
	)
	err := row.Scan(&info.Kind, &info.SourceName, &info.Rows, &raw, &info.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.DatasetInfo{}, nil, ErrNotFound
	}
	if err != nil {
		return domain.DatasetInfo{}, nil, err
	}
	var rows []domain.Record
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return domain.DatasetInfo{}, nil, fmt.Errorf("decode %s rows: %w", kind, err)
	}
	if rows == nil {
		rows = []domain.Record{}
	}
	return info, rows, nil
}

// ListDatasets returns metadata of every imported dataset in kind order.
func (r Repo) ListDatasets(ctx context.Context) ([]domain.DatasetInfo, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind,COALESCE(source_name,''),row_count,updated_at FROM datasets ORDER BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DatasetInfo
	for rows.Next() {
		var info domain.DatasetInfo
		if err := rows.Scan(&info.Kind, &info.SourceName, &info.Rows, &info.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, info)
	}
	return res, rows.Err()
}

func (r Repo) InsertRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	errorsJSON, err := marshalOptional(run.Errors, len(run.Errors) > 0)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	assignmentsJSON, err := marshalOptional(run.Assignments, run.Assignments != nil)
	if err != nil {
		return fmt.Errorf("marshal run assignments: %w", err)
	}
	weightsJSON, err := marshalOptional(run.Weights, len(run.Weights) > 0)
	if err != nil {
		return fmt.Errorf("marshal run weights: %w", err)
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO runs(id,kind,status,actor_id,error_count,assignment_count,errors_json,assignments_json,weights_json,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Kind, run.Status, run.ActorID, run.ErrorCount, run.AssignmentCount, errorsJSON, assignmentsJSON, weightsJSON, run.CreatedAt)
	return err
}

const runColumns = `id,kind,status,actor_id,error_count,assignment_count,errors_json,assignments_json,weights_json,created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, withDetail bool) (domain.Run, error) {
	var run domain.Run
	var errorsJSON, assignJSON, wJSON sql.NullString
	if err := s.Scan(&run.ID, &run.Kind, &run.Status, &run.ActorID, &run.ErrorCount, &run.AssignmentCount, &errorsJSON, &assignJSON, &wJSON, &run.CreatedAt); err != nil {
		return domain.Run{}, err
	}
	if wJSON.Valid {
		if err := json.Unmarshal([]byte(wJSON.String), &run.Weights); err != nil {
			return domain.Run{}, fmt.Errorf("decode run weights: %w", err)
		}
	}
	if !withDetail {
		return run, nil
	}
	if errorsJSON.Valid {
		if err := json.Unmarshal([]byte(errorsJSON.String), &run.Errors); err != nil {
			return domain.Run{}, fmt.Errorf("decode run errors: %w", err)
		}
	}
	if assignJSON.Valid {
		if err := json.Unmarshal([]byte(assignJSON.String), &run.Assignments); err != nil {
			return domain.Run{}, fmt.Errorf("decode run assignments: %w", err)
		}
	}
	return run, nil
}

// GetRun returns a run with its errors and assignments.
func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	run, err := scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id), true)
	if err == sql.ErrNoRows {
		return domain.Run{}, ErrNotFound
	}
	return run, err
}

// LatestRun returns the newest run of kind with detail.
func (r Repo) LatestRun(ctx context.Context, kind, status string) (domain.Run, error) {
	clauses := []string{"kind=?"}
	args := []any{kind}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT ` + runColumns + ` FROM runs WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, rowid DESC LIMIT 1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, args...), true)
	if err == sql.ErrNoRows {
		return domain.Run{}, ErrNotFound
	}
	return run, err
}

type RunFilters struct {
	Kind   string
	Status string
	Limit  int
}

// ListRuns returns run summaries, newest first. Errors and assignments are omitted.
func (r Repo) ListRuns(ctx context.Context, f RunFilters) ([]domain.Run, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Kind != "" {
		clauses = append(clauses, "kind=?")
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM runs WHERE %s ORDER BY created_at DESC, rowid DESC LIMIT ?`, runColumns, strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

func marshalOptional(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
