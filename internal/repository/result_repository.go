package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examgate/internal/model"
)

const resultColumns = `id, student_id, exam_id, score, total, percentage, status, practice, submitted_at`

// ResultRepository persists non-practice exam results in PostgreSQL.
// The partial unique index exam_results_once_idx is the only authority for
// the one-result-per-student rule.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Exists reports whether the student already has a non-practice result for the exam.
func (r *ResultRepository) Exists(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM exam_results
			WHERE exam_id = $1 AND student_id = $2 AND practice = false
		 )`, examID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists, nil
}

// InsertUnique stores a result unless one already exists for the pair.
// Returns ErrResultConflict when the unique index rejected the row.
func (r *ResultRepository) InsertUnique(ctx context.Context, res *model.Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_results (id, exam_id, student_id, score, total, percentage, status, practice, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		 ON CONFLICT (exam_id, student_id) WHERE practice = false DO NOTHING
		 RETURNING id, submitted_at`,
		res.ID, res.ExamID, res.StudentID, res.Score, res.Total, res.Percentage, res.Status, res.SubmittedAt,
	).Scan(&res.ID, &res.SubmittedAt)
	if err != nil {
		// DO NOTHING returns no row; a unique violation can still surface
		// when the competing transaction commits between index checks.
		if errors.Is(err, pgx.ErrNoRows) || isResultConflict(err) {
			return ErrResultConflict
		}
		return fmt.Errorf("insert result: %w", err)
	}
	res.Practice = false
	return nil
}

// ListByExam returns all non-practice results for an exam in insertion order.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+`
		 FROM exam_results
		 WHERE exam_id = $1 AND practice = false
		 ORDER BY submitted_at ASC, id ASC`, examID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return collectResults(rows)
}

// Count returns the number of non-practice results for an exam, optionally
// only those with a percentage strictly greater than the given value.
func (r *ResultRepository) Count(ctx context.Context, examID uuid.UUID, percentageGreaterThan *int) (int, error) {
	query := `SELECT COUNT(*) FROM exam_results WHERE exam_id = $1 AND practice = false`
	args := []any{examID}
	if percentageGreaterThan != nil {
		query += ` AND percentage > $2`
		args = append(args, *percentageGreaterThan)
	}

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// GetByStudentAndExam returns the student's non-practice result for an exam.
func (r *ResultRepository) GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	var res model.Result
	err := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+`
		 FROM exam_results
		 WHERE exam_id = $1 AND student_id = $2 AND practice = false`, examID, studentID,
	).Scan(&res.ID, &res.StudentID, &res.ExamID, &res.Score, &res.Total, &res.Percentage,
		&res.Status, &res.Practice, &res.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return &res, nil
}

// ListByStudent returns a student's non-practice results, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+`
		 FROM exam_results
		 WHERE student_id = $1 AND practice = false
		 ORDER BY submitted_at DESC`, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return collectResults(rows)
}

// ListExamIDsByStudent returns the exams a student holds a durable result for.
func (r *ResultRepository) ListExamIDsByStudent(ctx context.Context, studentID int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id FROM exam_results WHERE student_id = $1 AND practice = false`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempted exams: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan attempted exams: %w", err)
	}
	return ids, nil
}

func collectResults(rows pgx.Rows) ([]model.Result, error) {
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ID, &res.StudentID, &res.ExamID, &res.Score, &res.Total,
			&res.Percentage, &res.Status, &res.Practice, &res.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
