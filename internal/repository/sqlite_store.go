package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examgate/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore is an embedded exam, result and student store. It mirrors the
// PostgreSQL schema, including the partial unique index on results.
// Timestamps are stored as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Ping checks that the database file is still usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		exam_type TEXT NOT NULL DEFAULT 'TIMED' CHECK (exam_type IN ('TIMED', 'PRACTICE')),
		start_time INTEGER,
		end_time INTEGER,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		questions TEXT NOT NULL DEFAULT '[]',
		marks_per_question INTEGER NOT NULL DEFAULT 1,
		passing_percentage INTEGER,
		watermark_enabled INTEGER NOT NULL DEFAULT 0,
		watermark_text TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_results (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
		student_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		percentage INTEGER NOT NULL,
		status TEXT NOT NULL,
		practice INTEGER NOT NULL DEFAULT 0,
		submitted_at INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS exam_results_once_idx
		ON exam_results (exam_id, student_id) WHERE practice = 0;

	CREATE INDEX IF NOT EXISTS exam_results_exam_idx
		ON exam_results (exam_id, percentage DESC, submitted_at ASC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// ─── Seeding (authoring side) ───────────────────────────────────────────────

// CreateStudent inserts or renames a student.
func (s *SQLiteStore) CreateStudent(ctx context.Context, id int, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (id, name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`, id, name)
	return err
}

// CreateExam inserts an exam spec. Used by seeding and tests; the submission
// core itself never writes exams.
func (s *SQLiteStore) CreateExam(ctx context.Context, e *model.ExamSpec) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	var start, end *int64
	duration := 0
	if t, ok := e.TimedWindow(); ok {
		start, end = nullableNanos(t.Start), nullableNanos(t.End)
		duration = t.DurationMinutes
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exams (id, title, description, exam_type, start_time, end_time, duration_minutes,
		                    questions, marks_per_question, passing_percentage, watermark_enabled, watermark_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, string(e.Type()), start, end, duration,
		string(questions), e.MarksPerQuestion, e.PassingPercentage, e.Watermark.Enabled, e.Watermark.Text,
		e.CreatedAt.UnixNano(),
	)
	return err
}

// ─── Exam store ─────────────────────────────────────────────────────────────

const sqliteExamColumns = `id, title, description, exam_type, start_time, end_time, duration_minutes,
	questions, marks_per_question, passing_percentage, watermark_enabled, watermark_text, created_at`

// GetExamByID retrieves an exam spec by its UUID.
func (s *SQLiteStore) GetExamByID(ctx context.Context, id uuid.UUID) (*model.ExamSpec, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteExamColumns+` FROM exams WHERE id = ?`, id)
	e, err := scanSQLiteExam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// ListExams returns every exam, newest first.
func (s *SQLiteStore) ListExams(ctx context.Context) ([]model.ExamSpec, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteExamColumns+` FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []model.ExamSpec
	for rows.Next() {
		e, err := scanSQLiteExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteExam(row rowScanner) (*model.ExamSpec, error) {
	var (
		e                 model.ExamSpec
		examType          string
		start, end        sql.NullInt64
		duration          int
		questions         string
		passingPercentage sql.NullInt64
		createdAt         int64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &examType, &start, &end, &duration,
		&questions, &e.MarksPerQuestion, &passingPercentage, &e.Watermark.Enabled, &e.Watermark.Text, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := decodeQuestions([]byte(questions), &e); err != nil {
		return nil, err
	}

	e.Window = model.NewWindow(model.ExamType(examType), timeFromNullNanos(start), timeFromNullNanos(end), duration)
	e.PassingPercentage = model.DefaultPassingPercentage
	if passingPercentage.Valid {
		e.PassingPercentage = int(passingPercentage.Int64)
	}
	e.CreatedAt = time.Unix(0, createdAt)
	e.Normalize()
	return &e, nil
}

// ─── Result store ───────────────────────────────────────────────────────────

const sqliteResultColumns = `id, student_id, exam_id, score, total, percentage, status, practice, submitted_at`

// Exists reports whether the student already has a non-practice result for the exam.
func (s *SQLiteStore) Exists(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM exam_results WHERE exam_id = ? AND student_id = ? AND practice = 0
		 )`, examID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists, nil
}

// InsertUnique stores a result unless one already exists for the pair.
// Returns ErrResultConflict when the unique index rejected the row.
func (s *SQLiteStore) InsertUnique(ctx context.Context, res *model.Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.SubmittedAt.IsZero() {
		res.SubmittedAt = time.Now()
	}

	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO exam_results (id, exam_id, student_id, score, total, percentage, status, practice, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT (exam_id, student_id) WHERE practice = 0 DO NOTHING
		 RETURNING id`,
		res.ID, res.ExamID, res.StudentID, res.Score, res.Total, res.Percentage, string(res.Status),
		res.SubmittedAt.UnixNano(),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isSQLiteUniqueViolation(err) {
			return ErrResultConflict
		}
		return fmt.Errorf("insert result: %w", err)
	}
	res.ID = id
	res.Practice = false
	return nil
}

// ListByExam returns all non-practice results for an exam in insertion order.
func (s *SQLiteStore) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM exam_results
		 WHERE exam_id = ? AND practice = 0
		 ORDER BY submitted_at ASC, id ASC`, examID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return collectSQLiteResults(rows)
}

// Count returns the number of non-practice results for an exam, optionally
// only those with a percentage strictly greater than the given value.
func (s *SQLiteStore) Count(ctx context.Context, examID uuid.UUID, percentageGreaterThan *int) (int, error) {
	query := `SELECT COUNT(*) FROM exam_results WHERE exam_id = ? AND practice = 0`
	args := []any{examID}
	if percentageGreaterThan != nil {
		query += ` AND percentage > ?`
		args = append(args, *percentageGreaterThan)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// GetByStudentAndExam returns the student's non-practice result for an exam.
func (s *SQLiteStore) GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM exam_results
		 WHERE exam_id = ? AND student_id = ? AND practice = 0`, examID, studentID)
	res, err := scanSQLiteResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

// ListByStudent returns a student's non-practice results, newest first.
func (s *SQLiteStore) ListByStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM exam_results
		 WHERE student_id = ? AND practice = 0
		 ORDER BY submitted_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return collectSQLiteResults(rows)
}

// ListExamIDsByStudent returns the exams a student holds a durable result for.
func (s *SQLiteStore) ListExamIDsByStudent(ctx context.Context, studentID int) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exam_id FROM exam_results WHERE student_id = ? AND practice = 0`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempted exams: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attempted exam: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─── Student directory ──────────────────────────────────────────────────────

// Names returns id → name for the given students. Unknown ids are omitted.
func (s *SQLiteStore) Names(ctx context.Context, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	for _, id := range ids {
		var name string
		err := s.db.QueryRowContext(ctx, `SELECT name FROM students WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get student name: %w", err)
		}
		names[id] = name
	}
	return names, nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func scanSQLiteResult(row rowScanner) (*model.Result, error) {
	var (
		res         model.Result
		status      string
		submittedAt int64
	)
	if err := row.Scan(&res.ID, &res.StudentID, &res.ExamID, &res.Score, &res.Total,
		&res.Percentage, &status, &res.Practice, &submittedAt); err != nil {
		return nil, err
	}
	res.Status = model.ResultStatus(status)
	res.SubmittedAt = time.Unix(0, submittedAt)
	return &res, nil
}

func collectSQLiteResults(rows *sql.Rows) ([]model.Result, error) {
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanSQLiteResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func nullableNanos(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func timeFromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}
