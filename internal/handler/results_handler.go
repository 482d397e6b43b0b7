package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/examgate/internal/response"
	"github.com/stemsi/examgate/internal/service"
)

// ResultsHandler serves exam leaderboards to staff.
type ResultsHandler struct {
	rankingService *service.RankingService
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(rankingService *service.RankingService) *ResultsHandler {
	return &ResultsHandler{rankingService: rankingService}
}

// GetExamResults godoc
// GET /api/v1/staff/exams/:exam_id/results
// Returns the ranked results, count and average percentage for an exam.
func (h *ResultsHandler) GetExamResults(c *gin.Context) {
	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	summary, err := h.rankingService.Summary(c.Request.Context(), examID)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}
