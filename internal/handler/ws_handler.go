package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/middleware"
	"github.com/stemsi/examgate/internal/model"
	"github.com/stemsi/examgate/internal/response"
	"github.com/stemsi/examgate/internal/service"
	ws "github.com/stemsi/examgate/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler lets a student check an exam's state and submit over one socket.
type WSHandler struct {
	examService       *service.ExamService
	submissionService *service.SubmissionService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
	now               func() time.Time
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	examService *service.ExamService,
	submissionService *service.SubmissionService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		examService:       examService,
		submissionService: submissionService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
		now:               time.Now,
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Actions: status, submit, ping. Submission rules are the same as the HTTP API.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	studentID := claims.UserID

	// A hijacked connection outlives its request context unless closed.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	// Greet with the current state so the client can render immediately.
	h.handleStatus(ctx, conn, studentID, examID)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionStatus:
			h.handleStatus(ctx, conn, studentID, examID)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, studentID, examID, &msg)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidBody), "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleStatus(ctx context.Context, conn *websocket.Conn, studentID int, examID uuid.UUID) {
	view, err := h.examService.ClassifyForStudent(ctx, examID, studentID, h.now())
	if err != nil {
		writeServiceError(conn, err)
		return
	}
	ws.WriteTyped(conn, ws.StatusResponse{Event: ws.EventStatus, Data: view})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, studentID int, examID uuid.UUID, msg *ws.RequestPayload) {
	arrivedAt := h.now()

	answers := attemptAnswers(msg.Answers)

	result, err := h.submissionService.Submit(ctx, model.Attempt{
		StudentID: studentID,
		ExamID:    examID,
		Answers:   answers,
		ArrivedAt: arrivedAt,
	})
	if err != nil {
		writeServiceError(conn, err)
		return
	}

	ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Data: result})
}

func writeServiceError(conn *websocket.Conn, err error) {
	_, code := errorCode(err)
	ws.WriteError(conn, string(code), response.GetMessage(code))
}
