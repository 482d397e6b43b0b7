package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/examgate/internal/model"
)

// ExamStore is the read-only source of exam specs. Implementations return
// repository.ErrExamNotFound for unknown ids.
type ExamStore interface {
	GetExamByID(ctx context.Context, id uuid.UUID) (*model.ExamSpec, error)
	ListExams(ctx context.Context) ([]model.ExamSpec, error)
}

// ResultStore holds durable, non-practice results. InsertUnique must be
// atomic with respect to the (student, exam) pair and return
// repository.ErrResultConflict when a record already exists.
type ResultStore interface {
	Exists(ctx context.Context, studentID int, examID uuid.UUID) (bool, error)
	InsertUnique(ctx context.Context, res *model.Result) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error)
	Count(ctx context.Context, examID uuid.UUID, percentageGreaterThan *int) (int, error)
	GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Result, error)
	ListExamIDsByStudent(ctx context.Context, studentID int) ([]uuid.UUID, error)
}

// StudentDirectory resolves display names for leaderboards.
type StudentDirectory interface {
	Names(ctx context.Context, ids []int) (map[int]string, error)
}
