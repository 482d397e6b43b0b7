package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/config"
	"github.com/stemsi/examgate/internal/handler"
	"github.com/stemsi/examgate/internal/middleware"
	"github.com/stemsi/examgate/internal/response"
	"github.com/stemsi/examgate/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	StudentPortal *handler.StudentPortalHandler
	Results       *handler.ResultsHandler
	LiveResults   *handler.LiveResultsHandler
	WS            *handler.WSHandler
	Health        *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// Cancelling shutdown ends every open WebSocket and SSE stream.
func SetupRouter(
	shutdown context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log can carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.AccessLog(log))

	router.GET("/health", handlers.Health.Health)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/exams", handlers.StudentPortal.ListExams)
		studentAPI.GET("/exams/:exam_id/status", handlers.StudentPortal.GetExamStatus)
		studentAPI.GET("/exams/:exam_id/paper", handlers.StudentPortal.GetExamPaper)
		studentAPI.POST("/exams/:exam_id/submit", handlers.StudentPortal.SubmitExam)
		studentAPI.GET("/exams/:exam_id/result", handlers.StudentPortal.GetMyResult)
		studentAPI.GET("/results", handlers.StudentPortal.ListMyResults)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireStudentWSAuth(authService),
		middleware.EndOnShutdown(shutdown),
	)
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 3. Staff Group (JWT + role) ───────────────────────────────────
	staffAPI := router.Group("/api/v1/staff")
	staffAPI.Use(
		middleware.RequireStaffJWT(authService),
		middleware.RequireRole(service.RoleTeacher, service.RoleAdmin),
		middleware.NoStore(),
	)
	{
		staffAPI.GET("/exams/:exam_id/results", handlers.Results.GetExamResults)
		staffAPI.GET("/exams/:exam_id/results/live", middleware.EndOnShutdown(shutdown), handlers.LiveResults.StreamResults)
	}

	return router
}
