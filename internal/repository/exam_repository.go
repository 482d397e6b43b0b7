package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examgate/internal/model"
)

const examColumns = `id, title, description, exam_type, start_time, end_time,
		        duration_minutes, questions, marks_per_question, passing_percentage,
		        watermark_enabled, watermark_text, created_at`

// ExamRepository reads exam specs from PostgreSQL. Exams are owned by the
// authoring side of the platform; this repository never writes them.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetExamByID retrieves an exam spec by its UUID.
func (r *ExamRepository) GetExamByID(ctx context.Context, id uuid.UUID) (*model.ExamSpec, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id)
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// ListExams returns every exam, newest first.
func (r *ExamRepository) ListExams(ctx context.Context) ([]model.ExamSpec, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+examColumns+` FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []model.ExamSpec
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// scanExam maps one exams row to the tagged ExamSpec.
func scanExam(row pgx.Row) (*model.ExamSpec, error) {
	var (
		e                 model.ExamSpec
		examType          string
		start, end        *time.Time
		duration          int
		questionsJSON     []byte
		passingPercentage *int
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &examType, &start, &end,
		&duration, &questionsJSON, &e.MarksPerQuestion, &passingPercentage,
		&e.Watermark.Enabled, &e.Watermark.Text, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeQuestions(questionsJSON, &e); err != nil {
		return nil, err
	}

	e.Window = model.NewWindow(model.ExamType(examType), start, end, duration)
	e.PassingPercentage = model.DefaultPassingPercentage
	if passingPercentage != nil {
		e.PassingPercentage = *passingPercentage
	}
	e.Normalize()
	return &e, nil
}

func decodeQuestions(raw []byte, e *model.ExamSpec) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &e.Questions); err != nil {
		return fmt.Errorf("decode questions of exam %s: %w", e.ID, err)
	}
	return nil
}

// CreateExam inserts an exam spec. Used by seeding and tests; the submission
// core itself never writes exams.
func (r *ExamRepository) CreateExam(ctx context.Context, e *model.ExamSpec) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	var start, end *time.Time
	duration := 0
	if t, ok := e.TimedWindow(); ok {
		if !t.Start.IsZero() {
			start = &t.Start
		}
		if !t.End.IsZero() {
			end = &t.End
		}
		duration = t.DurationMinutes
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (id, title, description, exam_type, start_time, end_time, duration_minutes,
		                    questions, marks_per_question, passing_percentage, watermark_enabled, watermark_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		e.ID, e.Title, e.Description, string(e.Type()), start, end, duration,
		questions, e.MarksPerQuestion, e.PassingPercentage, e.Watermark.Enabled, e.Watermark.Text,
	).Scan(&e.CreatedAt)
}
