package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/config"
	"github.com/stemsi/examgate/internal/model"
)

// cacheTimeout bounds every Redis round trip on the request path. A slow or
// unreachable cache degrades to a store read instead of stalling the caller.
const cacheTimeout = 300 * time.Millisecond

// ExamService reads exam specs through a Redis cache-aside layer and
// classifies them for students. A nil Redis client disables caching.
type ExamService struct {
	exams    ExamStore
	results  ResultStore
	rdb      *redis.Client
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams ExamStore,
	results ResultStore,
	rdb *redis.Client,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:    exams,
		results:  results,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// cachedExam is the flat Redis representation of an ExamSpec.
type cachedExam struct {
	ID                uuid.UUID        `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	ExamType          model.ExamType   `json:"exam_type"`
	StartTime         *time.Time       `json:"start_time,omitempty"`
	EndTime           *time.Time       `json:"end_time,omitempty"`
	DurationMinutes   int              `json:"duration_minutes"`
	Questions         []model.Question `json:"questions"`
	MarksPerQuestion  int              `json:"marks_per_question"`
	PassingPercentage int              `json:"passing_percentage"`
	Watermark         model.Watermark  `json:"watermark"`
	CreatedAt         time.Time        `json:"created_at"`
}

func toCachedExam(e *model.ExamSpec) cachedExam {
	c := cachedExam{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		ExamType:          e.Type(),
		Questions:         e.Questions,
		MarksPerQuestion:  e.MarksPerQuestion,
		PassingPercentage: e.PassingPercentage,
		Watermark:         e.Watermark,
		CreatedAt:         e.CreatedAt,
	}
	if w, ok := e.TimedWindow(); ok {
		c.StartTime, c.EndTime = optionalTime(w.Start), optionalTime(w.End)
		c.DurationMinutes = w.DurationMinutes
	}
	return c
}

func (c cachedExam) spec() *model.ExamSpec {
	e := &model.ExamSpec{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		Window:            model.NewWindow(c.ExamType, c.StartTime, c.EndTime, c.DurationMinutes),
		Questions:         c.Questions,
		MarksPerQuestion:  c.MarksPerQuestion,
		PassingPercentage: c.PassingPercentage,
		Watermark:         c.Watermark,
		CreatedAt:         c.CreatedAt,
	}
	e.Normalize()
	return e
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// GetSpec returns the exam spec, from Redis when cached. Cache failures are
// logged and fall through to the store; after a failed read the store result
// is not written back.
func (s *ExamService) GetSpec(ctx context.Context, examID uuid.UUID) (*model.ExamSpec, error) {
	key := config.CacheKey.ExamSpecKey(examID.String())

	writeBack := s.rdb != nil
	if s.rdb != nil {
		readCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		data, err := s.rdb.Get(readCtx, key).Bytes()
		cancel()
		switch {
		case err == nil:
			var c cachedExam
			if jsonErr := json.Unmarshal(data, &c); jsonErr == nil {
				return c.spec(), nil
			}
			s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt exam cache entry, reloading")
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Exam cache read failed")
			writeBack = false
		}
	}

	spec, err := s.exams.GetExamByID(ctx, examID)
	if err != nil {
		return nil, storeFailure(s.log, "get exam", err, examID, 0)
	}

	if writeBack {
		s.cacheSpec(ctx, spec)
	}
	return spec, nil
}

func (s *ExamService) cacheSpec(ctx context.Context, spec *model.ExamSpec) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(toCachedExam(spec))
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, config.CacheKey.ExamSpecKey(spec.ID.String()), data, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", spec.ID.String()).Msg("Exam cache write failed")
	}
}

// PrewarmCache loads every exam into Redis on startup.
func (s *ExamService) PrewarmCache(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}

	exams, err := s.exams.ListExams(ctx)
	if err != nil {
		return storeFailure(s.log, "list exams", err, uuid.Nil, 0)
	}

	for i := range exams {
		s.cacheSpec(ctx, &exams[i])
	}

	s.log.Info().Int("count", len(exams)).Msg("Exam cache prewarmed")
	return nil
}

// ClassifyForStudent returns the state of an exam as the given student sees it.
// The result store is only consulted for timed exams.
func (s *ExamService) ClassifyForStudent(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (*model.ExamStatusView, error) {
	spec, err := s.GetSpec(ctx, examID)
	if err != nil {
		return nil, err
	}

	hasResult := false
	if spec.Type() == model.ExamTypeTimed {
		hasResult, err = s.results.Exists(ctx, studentID, examID)
		if err != nil {
			return nil, storeFailure(s.log, "check result", err, examID, studentID)
		}
	}

	return &model.ExamStatusView{
		ExamID:       examID,
		ExamType:     spec.Type(),
		State:        ClassifyForStudent(spec, hasResult, now),
		HasAttempted: hasResult,
	}, nil
}

// ListForStudent returns every exam with the student's view of its state.
func (s *ExamService) ListForStudent(ctx context.Context, studentID int, now time.Time) ([]model.ExamListItem, error) {
	exams, err := s.exams.ListExams(ctx)
	if err != nil {
		return nil, storeFailure(s.log, "list exams", err, uuid.Nil, studentID)
	}

	attemptedIDs, err := s.results.ListExamIDsByStudent(ctx, studentID)
	if err != nil {
		return nil, storeFailure(s.log, "list attempted exams", err, uuid.Nil, studentID)
	}
	attempted := make(map[uuid.UUID]bool, len(attemptedIDs))
	for _, id := range attemptedIDs {
		attempted[id] = true
	}

	items := make([]model.ExamListItem, 0, len(exams))
	for i := range exams {
		e := &exams[i]
		hasResult := e.Type() == model.ExamTypeTimed && attempted[e.ID]

		item := model.ExamListItem{
			ExamID:        e.ID,
			Title:         e.Title,
			Description:   e.Description,
			ExamType:      e.Type(),
			QuestionCount: len(e.Questions),
			State:         ClassifyForStudent(e, hasResult, now),
			HasAttempted:  hasResult,
		}
		if w, ok := e.TimedWindow(); ok {
			item.StartTime, item.EndTime = optionalTime(w.Start), optionalTime(w.End)
			item.DurationMinutes = w.DurationMinutes
		}
		items = append(items, item)
	}
	return items, nil
}

// GetPaper returns the questions without the answer key. Only LIVE timed
// exams and practice exams are served.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (*model.ExamPaper, error) {
	view, err := s.ClassifyForStudent(ctx, examID, studentID, now)
	if err != nil {
		return nil, err
	}
	if err := stateError(view.State); err != nil {
		return nil, err
	}

	spec, err := s.GetSpec(ctx, examID)
	if err != nil {
		return nil, err
	}

	paper := &model.ExamPaper{
		ExamID:      spec.ID,
		Title:       spec.Title,
		Description: spec.Description,
		ExamType:    spec.Type(),
		Watermark:   spec.Watermark,
		Questions:   model.ForStudents(spec.Questions),
	}
	if w, ok := spec.TimedWindow(); ok {
		paper.DurationMinutes = w.DurationMinutes
		paper.EndTime = optionalTime(w.End)
	}
	return paper, nil
}

// stateError maps a non-answerable state to its domain error.
func stateError(state model.ExamState) error {
	switch state {
	case model.ExamStateUpcoming:
		return ErrNotStarted
	case model.ExamStateEnded:
		return ErrAlreadyEnded
	case model.ExamStateLocked:
		return ErrAlreadySubmitted
	}
	return nil
}
