package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamType enumerates how an exam is gated in time.
type ExamType string

const (
	ExamTypeTimed    ExamType = "TIMED"
	ExamTypePractice ExamType = "PRACTICE"
)

const (
	DefaultMarksPerQuestion  = 1
	DefaultPassingPercentage = 40
)

// Window is the time configuration of an exam: either Timed or Practice.
type Window interface {
	examType() ExamType
}

// Timed binds an exam to a fixed wall-clock window. A zero Start or End
// means the window is incomplete and the exam must not be exposed.
type Timed struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int // informational only, End is authoritative
}

func (Timed) examType() ExamType { return ExamTypeTimed }

// Complete reports whether both bounds are set.
func (t Timed) Complete() bool {
	return !t.Start.IsZero() && !t.End.IsZero()
}

// Practice exams have no window and accept unlimited, non-persisted attempts.
type Practice struct{}

func (Practice) examType() ExamType { return ExamTypePractice }

// Watermark is a cosmetic overlay setting rendered by clients.
type Watermark struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
}

// ExamSpec is the read-only exam configuration consumed by the submission core.
type ExamSpec struct {
	ID                uuid.UUID
	Title             string
	Description       string
	Window            Window
	Questions         []Question
	MarksPerQuestion  int
	PassingPercentage int
	Watermark         Watermark
	CreatedAt         time.Time
}

// Type returns TIMED or PRACTICE. A spec without a window is treated as an
// incomplete timed exam, never as practice.
func (e *ExamSpec) Type() ExamType {
	if e.Window == nil {
		return ExamTypeTimed
	}
	return e.Window.examType()
}

// TimedWindow returns the timed window, if any.
func (e *ExamSpec) TimedWindow() (Timed, bool) {
	switch w := e.Window.(type) {
	case Timed:
		return w, true
	case *Timed:
		if w == nil {
			return Timed{}, true
		}
		return *w, true
	case nil:
		return Timed{}, true
	}
	return Timed{}, false
}

// Normalize applies the store defaults for marks and passing percentage.
func (e *ExamSpec) Normalize() {
	if e.MarksPerQuestion <= 0 {
		e.MarksPerQuestion = DefaultMarksPerQuestion
	}
	if e.PassingPercentage < 0 {
		e.PassingPercentage = 0
	}
	if e.PassingPercentage > 100 {
		e.PassingPercentage = 100
	}
	if e.Window == nil {
		e.Window = Timed{}
	}
}

// NewWindow builds the tagged window from the flat columns the stores keep.
func NewWindow(examType ExamType, start, end *time.Time, durationMinutes int) Window {
	if examType == ExamTypePractice {
		return Practice{}
	}
	t := Timed{DurationMinutes: durationMinutes}
	if start != nil {
		t.Start = *start
	}
	if end != nil {
		t.End = *end
	}
	return t
}

// ExamPaper is the student-facing exam content (no correct answers).
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	ExamType        ExamType             `json:"exam_type"`
	DurationMinutes int                  `json:"duration_minutes,omitempty"`
	EndTime         *time.Time           `json:"end_time,omitempty"`
	Watermark       Watermark            `json:"watermark"`
	Questions       []QuestionForStudent `json:"questions"`
}

// ExamListItem is an exam as shown in a student's exam list.
type ExamListItem struct {
	ExamID          uuid.UUID  `json:"exam_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ExamType        ExamType   `json:"exam_type"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	QuestionCount   int        `json:"question_count"`
	State           ExamState  `json:"status"`
	HasAttempted    bool       `json:"has_attempted"`
}
