package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store-level signals. Everything else a repository returns is a
// connectivity or query failure.
var (
	ErrExamNotFound   = errors.New("exam not found")
	ErrResultNotFound = errors.New("result not found")
	// ErrResultConflict means a non-practice result already exists for the
	// (student, exam) pair and the insert was rejected by the unique index.
	ErrResultConflict = errors.New("result already exists for student and exam")
)

const (
	pgUniqueViolation = "23505"
	resultOnceIndex   = "exam_results_once_idx"
)

// isResultConflict reports a violation of the one-result-per-student index.
// Other unique violations, such as a reused result id, are plain failures.
func isResultConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == resultOnceIndex
}
