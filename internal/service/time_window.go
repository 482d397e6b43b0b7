package service

import (
	"time"

	"github.com/stemsi/examgate/internal/model"
)

// Classify returns the lifecycle state of an exam at instant now.
// Both window bounds are inclusive. An incomplete timed window is UPCOMING.
func Classify(spec *model.ExamSpec, now time.Time) model.ExamState {
	if spec.Type() == model.ExamTypePractice {
		return model.ExamStatePracticeOpen
	}

	w, _ := spec.TimedWindow()
	switch {
	case w.Start.IsZero() || now.Before(w.Start):
		return model.ExamStateUpcoming
	case w.End.IsZero():
		return model.ExamStateUpcoming
	case now.After(w.End):
		return model.ExamStateEnded
	default:
		return model.ExamStateLive
	}
}

// ClassifyForStudent overlays LOCKED on a timed exam the student already
// holds a durable result for. LOCKED wins over every time-based state.
func ClassifyForStudent(spec *model.ExamSpec, hasResult bool, now time.Time) model.ExamState {
	state := Classify(spec, now)
	if state == model.ExamStatePracticeOpen {
		return state
	}
	if hasResult {
		return model.ExamStateLocked
	}
	return state
}
