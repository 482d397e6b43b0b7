package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/database"
	"github.com/stemsi/examgate/internal/model"
	"github.com/stemsi/examgate/internal/repository"
	"github.com/stretchr/testify/require"
)

// fixture wires the services to a throwaway SQLite store. Redis is off
// unless built with wireFixture.
type fixture struct {
	store       *repository.SQLiteStore
	exams       *ExamService
	feed        *ResultFeed
	submissions *SubmissionService
	ranking     *RankingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "service.db"), zerolog.Nop())
	require.NoError(t, err)
	store, err := repository.NewSQLiteStore(ctx, db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return newFixtureWith(store, store, store, store)
}

func newFixtureWith(store *repository.SQLiteStore, exams ExamStore, results ResultStore, students StudentDirectory) *fixture {
	return wireFixture(store, exams, results, students, nil)
}

// wireFixture builds the services; a non-nil rdb turns on the exam cache
// and the result feed.
func wireFixture(store *repository.SQLiteStore, exams ExamStore, results ResultStore, students StudentDirectory, rdb *redis.Client) *fixture {
	log := zerolog.Nop()
	examService := NewExamService(exams, results, rdb, time.Minute, log)
	feed := NewResultFeed(rdb)
	return &fixture{
		store:       store,
		exams:       examService,
		feed:        feed,
		submissions: NewSubmissionService(examService, results, feed, log),
		ranking:     NewRankingService(examService, results, students, log),
	}
}

func (f *fixture) createExam(t *testing.T, spec *model.ExamSpec) *model.ExamSpec {
	t.Helper()
	require.NoError(t, f.store.CreateExam(context.Background(), spec))
	return spec
}

func (f *fixture) timedExam(t *testing.T) *model.ExamSpec {
	return f.createExam(t, fourQuestionSpec(model.Timed{Start: windowStart, End: windowEnd, DurationMinutes: 90}))
}

func (f *fixture) practiceExam(t *testing.T) *model.ExamSpec {
	return f.createExam(t, fourQuestionSpec(model.Practice{}))
}

func attempt(studentID int, examID uuid.UUID, at time.Time, answers ...*int) model.Attempt {
	if answers == nil {
		answers = []*int{}
	}
	return model.Attempt{StudentID: studentID, ExamID: examID, Answers: answers, ArrivedAt: at}
}

var errStoreDown = errors.New("connection refused")

// brokenResults fails every call like an unreachable database.
type brokenResults struct{}

func (brokenResults) Exists(context.Context, int, uuid.UUID) (bool, error) {
	return false, errStoreDown
}
func (brokenResults) InsertUnique(context.Context, *model.Result) error { return errStoreDown }
func (brokenResults) ListByExam(context.Context, uuid.UUID) ([]model.Result, error) {
	return nil, errStoreDown
}
func (brokenResults) Count(context.Context, uuid.UUID, *int) (int, error) { return 0, errStoreDown }
func (brokenResults) GetByStudentAndExam(context.Context, int, uuid.UUID) (*model.Result, error) {
	return nil, errStoreDown
}
func (brokenResults) ListByStudent(context.Context, int) ([]model.Result, error) {
	return nil, errStoreDown
}
func (brokenResults) ListExamIDsByStudent(context.Context, int) ([]uuid.UUID, error) {
	return nil, errStoreDown
}

// insertFails passes the pre-check but loses the database on insert.
type insertFails struct {
	ResultStore
}

func (insertFails) InsertUnique(context.Context, *model.Result) error { return errStoreDown }
