package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/RezaEskandarii/driveq/types"
)

const historyColumns = 10

type PostgresJobHistoryStore struct {
	db *sql.DB
}

func NewPostgresJobHistoryStore(db *sql.DB) *PostgresJobHistoryStore {
	return &PostgresJobHistoryStore{db: db}
}

var _ store.JobHistoryStore = (*PostgresJobHistoryStore)(nil)

func (r *PostgresJobHistoryStore) BulkInsert(ctx context.Context, records []types.JobRecord) error {
	if len(records) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*historyColumns)
	for i, rec := range records {
		base := i * historyColumns
		slots := make([]string, historyColumns)
		for j := range slots {
			slots[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(slots, ", ")+")")
		args = append(args,
			rec.Instance, int64(rec.JobID), rec.Type, rec.Queue, rec.Priority,
			rec.Status, rec.Attempts, rec.LastError, rec.StartedAt, rec.FinishedAt,
		)
	}

	query := `INSERT INTO driveq_schema.job_history
		(instance, job_id, job_type, queue, priority, status, attempts, last_error, started_at, finished_at)
		VALUES ` + strings.Join(placeholders, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job history batch: %w", err)
	}
	return nil
}

func (r *PostgresJobHistoryStore) List(ctx context.Context, page, pageSize int, status state.JobStatus) (*types.PaginationResult[types.JobRecord], error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var args []any
	where := "TRUE"

	argIndex := 1
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	countQuery := `SELECT COUNT(*) FROM driveq_schema.job_history WHERE ` + where
	selectQuery := fmt.Sprintf(`
		SELECT id, instance, job_id, job_type, queue, priority, status,
		       attempts, last_error, created_at, started_at, finished_at
		FROM driveq_schema.job_history
		WHERE %s
		ORDER BY finished_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, argIndex, argIndex+1)

	var totalItems int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalItems); err != nil {
		return nil, err
	}

	args = append(args, pageSize, offset)
	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.JobRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store.NewPaginationResult(records, totalItems, page, pageSize), nil
}

func (r *PostgresJobHistoryStore) FindByJobID(ctx context.Context, instance string, jobID types.JobID) (*types.JobRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, instance, job_id, job_type, queue, priority, status,
		       attempts, last_error, created_at, started_at, finished_at
		FROM driveq_schema.job_history
		WHERE instance = $1 AND job_id = $2
		ORDER BY id DESC
		LIMIT 1`, instance, int64(jobID))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return rec, err
}

func (r *PostgresJobHistoryStore) CountByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) AS count
		FROM driveq_schema.job_history
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[state.JobStatus]int)
	for rows.Next() {
		var status state.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}

	for _, status := range store.TerminalStatuses {
		if _, ok := result[status]; !ok {
			result[status] = 0
		}
	}

	return result, rows.Err()
}

func (r *PostgresJobHistoryStore) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.JobRecord, error) {
	var rec types.JobRecord
	var jobID int64
	err := row.Scan(
		&rec.ID, &rec.Instance, &jobID, &rec.Type, &rec.Queue, &rec.Priority, &rec.Status,
		&rec.Attempts, &rec.LastError, &rec.CreatedAt, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.JobID = types.JobID(jobID)
	return &rec, nil
}
