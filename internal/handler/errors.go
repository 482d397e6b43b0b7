package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/examgate/internal/response"
	"github.com/stemsi/examgate/internal/service"
)

// errorCode maps a service error to its HTTP status and API error code.
func errorCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return http.StatusNotFound, response.ErrExamNotFound
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusForbidden, response.ErrExamNotStarted
	case errors.Is(err, service.ErrAlreadyEnded):
		return http.StatusForbidden, response.ErrExamAlreadyEnded
	case errors.Is(err, service.ErrAlreadySubmitted):
		return http.StatusConflict, response.ErrExamAlreadySubmitted
	case errors.Is(err, service.ErrInvalidAnswers):
		return http.StatusBadRequest, response.ErrInvalidAnswers
	case errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, response.ErrResultNotFound
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, response.ErrStoreUnavailable
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

func failWithError(c *gin.Context, err error) {
	status, code := errorCode(err)
	response.Fail(c, status, code)
}

// attemptAnswers decodes the raw answers of a submission. A missing or
// unreadable field yields nil, which Submit rejects as ErrInvalidAnswers only
// after the window check, so an ended exam still reports EXAM_ALREADY_ENDED.
func attemptAnswers(raw json.RawMessage) []*int {
	if len(raw) == 0 {
		return nil
	}
	answers, err := service.ParseAnswers(raw)
	if err != nil {
		return nil
	}
	return answers
}
