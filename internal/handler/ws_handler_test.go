package handler_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/examgate/internal/model"
	ws "github.com/stemsi/examgate/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Event ws.Event        `json:"event"`
	Code  string          `json:"code"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestExamWebSocketStream(t *testing.T) {
	s := newTestServer(t, nil)
	exam := s.liveExam()

	srv := httptest.NewServer(s.http)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/student/exams/" + exam.ID.String() + "/stream?token=" + s.studentToken(7)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	greeting := readEvent(t, conn)
	require.Equal(t, ws.EventStatus, greeting.Event)
	var view model.ExamStatusView
	require.NoError(t, json.Unmarshal(greeting.Data, &view))
	assert.Equal(t, model.ExamStateLive, view.State)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionPing}))
	assert.Equal(t, ws.EventPong, readEvent(t, conn).Event)

	// Missing answers do not use up the attempt.
	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit}))
	bad := readEvent(t, conn)
	assert.Equal(t, ws.EventError, bad.Event)
	assert.Equal(t, "INVALID_ANSWERS", bad.Code)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit, Answers: json.RawMessage(`"0,1"`)}))
	bad = readEvent(t, conn)
	assert.Equal(t, ws.EventError, bad.Event)
	assert.Equal(t, "INVALID_ANSWERS", bad.Code)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit, Answers: json.RawMessage(`[0,1]`)}))
	graded := readEvent(t, conn)
	require.Equal(t, ws.EventGraded, graded.Event)
	var res model.SubmissionResult
	require.NoError(t, json.Unmarshal(graded.Data, &res))
	assert.Equal(t, 100, res.Percentage)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit, Answers: json.RawMessage(`[0,1]`)}))
	dup := readEvent(t, conn)
	assert.Equal(t, ws.EventError, dup.Event)
	assert.Equal(t, "EXAM_ALREADY_SUBMITTED", dup.Code)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionStatus}))
	status := readEvent(t, conn)
	require.NoError(t, json.Unmarshal(status.Data, &view))
	assert.Equal(t, model.ExamStateLocked, view.State)
}

func TestExamWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)
	exam := s.liveExam()

	srv := httptest.NewServer(s.http)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/student/exams/" + exam.ID.String() + "/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestExamWebSocketClosedOnShutdown(t *testing.T) {
	shutdown, stop := context.WithCancel(context.Background())
	defer stop()
	s := newTestServerWith(t, serverOptions{shutdown: shutdown})
	exam := s.liveExam()

	srv := httptest.NewServer(s.http)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/student/exams/" + exam.ID.String() + "/stream?token=" + s.studentToken(8)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, ws.EventStatus, readEvent(t, conn).Event)

	stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
