package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/repository"
)

// Domain errors surfaced to the transport layer.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrNotStarted       = errors.New("exam has not started")
	ErrAlreadyEnded     = errors.New("exam has already ended")
	ErrAlreadySubmitted = errors.New("exam already submitted")
	ErrInvalidAnswers   = errors.New("answers are missing or malformed")
	ErrResultNotFound   = errors.New("no result for this student and exam")
	// ErrStoreUnavailable wraps any store failure that is not a domain signal.
	// Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// storeError translates repository signals to domain errors and wraps
// everything else as ErrStoreUnavailable.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrExamNotFound):
		return ErrExamNotFound
	case errors.Is(err, repository.ErrResultNotFound):
		return ErrResultNotFound
	case errors.Is(err, repository.ErrResultConflict):
		return ErrAlreadySubmitted
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// storeFailure is storeError plus an error log for unavailable stores.
// A zero studentID is left out of the log line.
func storeFailure(log zerolog.Logger, op string, err error, examID uuid.UUID, studentID int) error {
	wrapped := storeError(op, err)
	if !errors.Is(wrapped, ErrStoreUnavailable) {
		return wrapped
	}

	ev := log.Error().Err(err).Str("op", op)
	if examID != uuid.Nil {
		ev = ev.Str("exam_id", examID.String())
	}
	if studentID != 0 {
		ev = ev.Int("student_id", studentID)
	}
	ev.Msg("store failure")
	return wrapped
}
