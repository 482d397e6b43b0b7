package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExamState is the time-based lifecycle state of an exam as seen by a student.
type ExamState string

const (
	ExamStateUpcoming     ExamState = "UPCOMING"
	ExamStateLive         ExamState = "LIVE"
	ExamStateEnded        ExamState = "ENDED"
	ExamStatePracticeOpen ExamState = "PRACTICE_ALWAYS_OPEN"
	ExamStateLocked       ExamState = "LOCKED"
)

// ResultStatus is the pass/fail verdict of a scored submission.
type ResultStatus string

const (
	ResultStatusPass ResultStatus = "PASS"
	ResultStatusFail ResultStatus = "FAIL"
)

// Attempt is a single submission request. A nil Answers slice means the
// payload carried no answers at all; an empty slice is a legal blank attempt.
type Attempt struct {
	StudentID int
	ExamID    uuid.UUID
	Answers   []*int
	ArrivedAt time.Time
}

// Outcome is the pure scoring result of an attempt.
type Outcome struct {
	Score      int          `json:"score"`
	Total      int          `json:"total"`
	Percentage int          `json:"percentage"`
	Status     ResultStatus `json:"status"`
}

// Result is a durable, non-practice result record. Practice outcomes are
// returned with Practice set and never stored.
type Result struct {
	ID          uuid.UUID `json:"id"`
	StudentID   int       `json:"student_id"`
	ExamID      uuid.UUID `json:"exam_id"`
	Outcome
	Practice    bool      `json:"practice"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmitRequest is the payload for submitting an exam. Answers is kept raw so
// structural validation can tell an absent payload from a malformed one.
type SubmitRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// SubmissionResult is returned to the student after a submission.
type SubmissionResult struct {
	ExamTitle string `json:"exam_title"`
	Result
}

// ExamStatusView is the student-facing classification of one exam.
type ExamStatusView struct {
	ExamID       uuid.UUID `json:"exam_id"`
	ExamType     ExamType  `json:"exam_type"`
	State        ExamState `json:"status"`
	HasAttempted bool      `json:"has_attempted"`
}

// RankedResult is a leaderboard row. Equal percentages never share a rank.
type RankedResult struct {
	Result
	StudentName string `json:"student_name,omitempty"`
	Rank        int    `json:"rank"`
}

// StudentRank is a single student's "better-than" rank. Ties share a rank.
type StudentRank struct {
	Result
	ExamTitle  string `json:"exam_title"`
	Rank       int    `json:"rank"`
	CohortSize int    `json:"total_students"`
}

// ExamResultSummary is the staff view of all results for an exam.
type ExamResultSummary struct {
	ExamID            uuid.UUID      `json:"exam_id"`
	ExamTitle         string         `json:"exam_title"`
	ExamDescription   string         `json:"exam_description,omitempty"`
	Count             int            `json:"total"`
	AveragePercentage string         `json:"average"`
	Results           []RankedResult `json:"results"`
}

// StudentResultView is one row of a student's result history.
type StudentResultView struct {
	Result
	ExamTitle string   `json:"exam_title"`
	ExamType  ExamType `json:"exam_type"`
}

// ResultEvent is published on the live results channel for each accepted submission.
type ResultEvent struct {
	ExamID      uuid.UUID    `json:"exam_id"`
	ResultID    uuid.UUID    `json:"result_id"`
	StudentID   int          `json:"student_id"`
	Percentage  int          `json:"percentage"`
	Status      ResultStatus `json:"status"`
	SubmittedAt time.Time    `json:"submitted_at"`
}
