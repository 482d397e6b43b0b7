package websocket

import (
	"encoding/json"

	"github.com/stemsi/examgate/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStatus Action = "status"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is every client message. Answers is only read for submit
// and is kept raw so a missing field can be told apart from an empty list.
type RequestPayload struct {
	Action  Action          `json:"action"`
	Answers json.RawMessage `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventStatus Event = "status"
	EventGraded Event = "graded"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

type StatusResponse struct {
	Event Event                 `json:"event"`
	Data  *model.ExamStatusView `json:"data"`
}

type GradedResponse struct {
	Event Event                   `json:"event"`
	Data  *model.SubmissionResult `json:"data"`
}

// ErrorResponse carries the same code the HTTP API would return.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
