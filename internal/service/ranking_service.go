package service

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stemsi/examgate/internal/model"
	"golang.org/x/sync/errgroup"
)

// RankingService computes leaderboards and per-student ranks from the
// durable results. Practice outcomes never appear here.
type RankingService struct {
	exams    *ExamService
	results  ResultStore
	students StudentDirectory
	log      zerolog.Logger
}

// NewRankingService creates a new RankingService. students may be nil, in
// which case leaderboard rows carry no names.
func NewRankingService(
	exams *ExamService,
	results ResultStore,
	students StudentDirectory,
	log zerolog.Logger,
) *RankingService {
	return &RankingService{
		exams:    exams,
		results:  results,
		students: students,
		log:      log.With().Str("component", "ranking_service").Logger(),
	}
}

// RankResults orders results by percentage (desc), then submission time
// (asc), then record id, and numbers them from 1. Equal percentages get
// distinct ranks. The input slice is sorted in place.
func RankResults(results []model.Result) []model.RankedResult {
	slices.SortFunc(results, func(a, b model.Result) int {
		if c := cmp.Compare(b.Percentage, a.Percentage); c != 0 {
			return c
		}
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	ranked := make([]model.RankedResult, len(results))
	for i, r := range results {
		ranked[i] = model.RankedResult{Result: r, Rank: i + 1}
	}
	return ranked
}

// ListRanked returns the leaderboard of an exam.
func (s *RankingService) ListRanked(ctx context.Context, examID uuid.UUID) ([]model.RankedResult, error) {
	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return nil, storeFailure(s.log, "list results", err, examID, 0)
	}

	ranked := RankResults(results)
	if len(ranked) == 0 || s.students == nil {
		return ranked, nil
	}

	ids := make([]int, len(ranked))
	for i, r := range ranked {
		ids[i] = r.StudentID
	}
	names, err := s.students.Names(ctx, ids)
	if err != nil {
		// Names are decoration; the leaderboard is still correct without them.
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to resolve student names")
		return ranked, nil
	}
	for i := range ranked {
		ranked[i].StudentName = names[ranked[i].StudentID]
	}
	return ranked, nil
}

// RankOf returns the student's rank as 1 + the number of strictly better
// results, so equal percentages share a rank.
func (s *RankingService) RankOf(ctx context.Context, examID uuid.UUID, studentID int) (*model.StudentRank, error) {
	spec, err := s.exams.GetSpec(ctx, examID)
	if err != nil {
		return nil, err
	}

	mine, err := s.results.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, storeFailure(s.log, "get result", err, examID, studentID)
	}

	var better, cohort int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.results.Count(gctx, examID, &mine.Percentage)
		better = n
		return err
	})
	g.Go(func() error {
		n, err := s.results.Count(gctx, examID, nil)
		cohort = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeFailure(s.log, "count results", err, examID, studentID)
	}

	return &model.StudentRank{
		Result:     *mine,
		ExamTitle:  spec.Title,
		Rank:       better + 1,
		CohortSize: cohort,
	}, nil
}

// Summary returns the staff view of an exam: leaderboard plus average percentage.
func (s *RankingService) Summary(ctx context.Context, examID uuid.UUID) (*model.ExamResultSummary, error) {
	spec, err := s.exams.GetSpec(ctx, examID)
	if err != nil {
		return nil, err
	}

	ranked, err := s.ListRanked(ctx, examID)
	if err != nil {
		return nil, err
	}

	return &model.ExamResultSummary{
		ExamID:            spec.ID,
		ExamTitle:         spec.Title,
		ExamDescription:   spec.Description,
		Count:             len(ranked),
		AveragePercentage: AveragePercentage(ranked),
		Results:           ranked,
	}, nil
}

// AveragePercentage formats the mean percentage with two decimals, "0.00" when empty.
func AveragePercentage(ranked []model.RankedResult) string {
	if len(ranked) == 0 {
		return decimal.Zero.StringFixed(2)
	}
	sum := decimal.Zero
	for _, r := range ranked {
		sum = sum.Add(decimal.NewFromInt(int64(r.Percentage)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(ranked)))).StringFixed(2)
}

// MyResults returns the student's durable results, newest first. Results of
// exams that no longer exist are skipped.
func (s *RankingService) MyResults(ctx context.Context, studentID int) ([]model.StudentResultView, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeFailure(s.log, "list student results", err, uuid.Nil, studentID)
	}

	views := make([]model.StudentResultView, 0, len(results))
	for _, r := range results {
		spec, err := s.exams.GetSpec(ctx, r.ExamID)
		if errors.Is(err, ErrExamNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, model.StudentResultView{
			Result:    r,
			ExamTitle: spec.Title,
			ExamType:  spec.Type(),
		})
	}
	return views, nil
}
