package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/middleware"
	"github.com/stemsi/examgate/internal/model"
	"github.com/stemsi/examgate/internal/response"
	"github.com/stemsi/examgate/internal/service"
	"github.com/stemsi/examgate/internal/validator"
)

// examURI is the :exam_id path parameter shared by exam routes.
type examURI struct {
	ExamID string `uri:"exam_id" binding:"required,uuid"`
}

// bindExamID parses :exam_id, writing a 400 response on failure.
func bindExamID(c *gin.Context) (uuid.UUID, bool) {
	var uri examURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(uri.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// StudentPortalHandler handles student-facing endpoints (exam list, taking, results).
type StudentPortalHandler struct {
	examService       *service.ExamService
	submissionService *service.SubmissionService
	rankingService    *service.RankingService
	log               zerolog.Logger
	now               func() time.Time
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	examService *service.ExamService,
	submissionService *service.SubmissionService,
	rankingService *service.RankingService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		examService:       examService,
		submissionService: submissionService,
		rankingService:    rankingService,
		log:               log.With().Str("component", "student_portal_handler").Logger(),
		now:               time.Now,
	}
}

// ListExams godoc
// GET /api/v1/student/exams
// Returns every exam with its state for the calling student.
func (h *StudentPortalHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListForStudent(c.Request.Context(), claims.UserID, h.now())
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExamStatus godoc
// GET /api/v1/student/exams/:exam_id/status
func (h *StudentPortalHandler) GetExamStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	view, err := h.examService.ClassifyForStudent(c.Request.Context(), examID, claims.UserID, h.now())
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetExamPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the questions without the answer key. Only served while the exam
// is LIVE for this student, or for practice exams.
func (h *StudentPortalHandler) GetExamPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), examID, claims.UserID, h.now())
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Grades the answers. Timed exams accept exactly one submission per student.
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	arrivedAt := h.now()

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	// An unreadable body counts as missing answers. The service decides when
	// that matters, after the window and duplicate checks.
	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		h.log.Debug().Str("exam_id", examID.String()).Interface("fields", fields).Msg("Unreadable submit body")
	}

	answers := attemptAnswers(req.Answers)

	result, err := h.submissionService.Submit(c.Request.Context(), model.Attempt{
		StudentID: claims.UserID,
		ExamID:    examID,
		Answers:   answers,
		ArrivedAt: arrivedAt,
	})
	if err != nil {
		failWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Practice {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// GetMyResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the student's result with rank and cohort size.
func (h *StudentPortalHandler) GetMyResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	rank, err := h.rankingService.RankOf(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rank)
}

// ListMyResults godoc
// GET /api/v1/student/results
func (h *StudentPortalHandler) ListMyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.rankingService.MyResults(c.Request.Context(), claims.UserID)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}
