package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyForStudentLocksAfterSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam := f.timedExam(t)

	view, err := f.exams.ClassifyForStudent(ctx, exam.ID, 1, live)
	require.NoError(t, err)
	assert.Equal(t, model.ExamStateLive, view.State)
	assert.False(t, view.HasAttempted)

	_, err = f.submissions.Submit(ctx, attempt(1, exam.ID, live))
	require.NoError(t, err)

	for _, now := range []time.Time{live, windowEnd.Add(time.Hour)} {
		view, err = f.exams.ClassifyForStudent(ctx, exam.ID, 1, now)
		require.NoError(t, err)
		assert.Equal(t, model.ExamStateLocked, view.State)
		assert.True(t, view.HasAttempted)
	}

	// Other students are unaffected.
	view, err = f.exams.ClassifyForStudent(ctx, exam.ID, 2, live)
	require.NoError(t, err)
	assert.Equal(t, model.ExamStateLive, view.State)

	_, err = f.exams.ClassifyForStudent(ctx, uuid.New(), 1, live)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestListForStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	timed := f.timedExam(t)
	practice := f.practiceExam(t)

	_, err := f.submissions.Submit(ctx, attempt(1, timed.ID, live))
	require.NoError(t, err)

	items, err := f.exams.ListForStudent(ctx, 1, live)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[uuid.UUID]model.ExamListItem{}
	for _, it := range items {
		byID[it.ExamID] = it
	}
	assert.Equal(t, model.ExamStateLocked, byID[timed.ID].State)
	assert.True(t, byID[timed.ID].HasAttempted)
	assert.Equal(t, 4, byID[timed.ID].QuestionCount)
	require.NotNil(t, byID[timed.ID].EndTime)
	assert.True(t, byID[timed.ID].EndTime.Equal(windowEnd))

	assert.Equal(t, model.ExamStatePracticeOpen, byID[practice.ID].State)
	assert.Nil(t, byID[practice.ID].StartTime)
}

func TestGetPaper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam := f.timedExam(t)

	paper, err := f.exams.GetPaper(ctx, exam.ID, 1, live)
	require.NoError(t, err)
	assert.Equal(t, "Biologi", paper.Title)
	assert.Equal(t, 90, paper.DurationMinutes)
	require.Len(t, paper.Questions, 4)
	assert.Equal(t, 3, paper.Questions[3].Index)

	_, err = f.exams.GetPaper(ctx, exam.ID, 1, windowStart.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = f.exams.GetPaper(ctx, exam.ID, 1, windowEnd.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyEnded)

	_, err = f.submissions.Submit(ctx, attempt(1, exam.ID, live))
	require.NoError(t, err)
	_, err = f.exams.GetPaper(ctx, exam.ID, 1, live)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	practice := f.practiceExam(t)
	paper, err = f.exams.GetPaper(ctx, practice.ID, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, model.ExamTypePractice, paper.ExamType)
	assert.Nil(t, paper.EndTime)
}

func TestCachedExamKeepsWindow(t *testing.T) {
	timed := fourQuestionSpec(model.Timed{Start: windowStart, End: windowEnd, DurationMinutes: 90})
	timed.ID = uuid.New()

	back := toCachedExam(timed).spec()
	assert.Equal(t, timed.ID, back.ID)
	w, ok := back.TimedWindow()
	require.True(t, ok)
	assert.True(t, w.Start.Equal(windowStart))
	assert.True(t, w.End.Equal(windowEnd))
	assert.Equal(t, timed.Questions, back.Questions)

	incomplete := toCachedExam(fourQuestionSpec(model.Timed{Start: windowStart})).spec()
	assert.Equal(t, model.ExamStateUpcoming, Classify(incomplete, windowEnd))

	practice := toCachedExam(fourQuestionSpec(model.Practice{})).spec()
	assert.Equal(t, model.ExamTypePractice, practice.Type())
}
