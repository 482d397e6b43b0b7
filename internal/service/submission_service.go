package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/model"
)

const publishTimeout = 500 * time.Millisecond

// SubmissionService accepts, scores and records exam submissions. For timed
// exams at most one result per student is ever stored; the result store's
// unique index is the authority for that rule.
type SubmissionService struct {
	exams   *ExamService
	results ResultStore
	feed    *ResultFeed
	log     zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	exams *ExamService,
	results ResultStore,
	feed *ResultFeed,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		exams:   exams,
		results: results,
		feed:    feed,
		log:     log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit grades an attempt. Practice attempts are scored and returned without
// being stored. Timed attempts must arrive inside the window and are stored
// once; every later attempt fails with ErrAlreadySubmitted.
func (s *SubmissionService) Submit(ctx context.Context, attempt model.Attempt) (*model.SubmissionResult, error) {
	if attempt.ArrivedAt.IsZero() {
		attempt.ArrivedAt = time.Now()
	}

	spec, err := s.exams.GetSpec(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	timed := spec.Type() == model.ExamTypeTimed

	if timed {
		switch Classify(spec, attempt.ArrivedAt) {
		case model.ExamStateUpcoming:
			return nil, ErrNotStarted
		case model.ExamStateEnded:
			return nil, ErrAlreadyEnded
		}

		exists, err := s.results.Exists(ctx, attempt.StudentID, attempt.ExamID)
		if err != nil {
			return nil, storeFailure(s.log, "check result", err, attempt.ExamID, attempt.StudentID)
		}
		if exists {
			return nil, ErrAlreadySubmitted
		}
	}

	if attempt.Answers == nil {
		return nil, ErrInvalidAnswers
	}

	res := model.Result{
		StudentID:   attempt.StudentID,
		ExamID:      attempt.ExamID,
		Outcome:     Score(spec, attempt.Answers),
		Practice:    !timed,
		SubmittedAt: attempt.ArrivedAt,
	}

	if !timed {
		return &model.SubmissionResult{ExamTitle: spec.Title, Result: res}, nil
	}

	// The window check already passed; a client hanging up must not abort
	// the insert halfway.
	insertCtx := context.WithoutCancel(ctx)
	if err := s.results.InsertUnique(insertCtx, &res); err != nil {
		err = storeFailure(s.log, "insert result", err, attempt.ExamID, attempt.StudentID)
		if errors.Is(err, ErrAlreadySubmitted) {
			s.log.Info().
				Str("exam_id", attempt.ExamID.String()).
				Int("student_id", attempt.StudentID).
				Msg("Concurrent duplicate submission rejected")
		}
		return nil, err
	}

	s.log.Info().
		Str("exam_id", res.ExamID.String()).
		Int("student_id", res.StudentID).
		Int("percentage", res.Percentage).
		Str("status", string(res.Status)).
		Msg("Submission accepted")

	s.publish(insertCtx, res)

	return &model.SubmissionResult{ExamTitle: spec.Title, Result: res}, nil
}

func (s *SubmissionService) publish(ctx context.Context, res model.Result) {
	if !s.feed.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ev := model.ResultEvent{
		ExamID:      res.ExamID,
		ResultID:    res.ID,
		StudentID:   res.StudentID,
		Percentage:  res.Percentage,
		Status:      res.Status,
		SubmittedAt: res.SubmittedAt,
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("exam_id", res.ExamID.String()).Msg("Failed to publish result event")
	}
}
