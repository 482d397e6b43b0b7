package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/response"
	"github.com/stemsi/examgate/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // keeps a slow store from stalling the SSE loop
)

// LiveResultsHandler streams accepted submissions of an exam to staff over SSE.
type LiveResultsHandler struct {
	rankingService *service.RankingService
	feed           *service.ResultFeed
	log            zerolog.Logger
}

// NewLiveResultsHandler creates a new LiveResultsHandler.
func NewLiveResultsHandler(
	rankingService *service.RankingService,
	feed *service.ResultFeed,
	log zerolog.Logger,
) *LiveResultsHandler {
	return &LiveResultsHandler{
		rankingService: rankingService,
		feed:           feed,
		log:            log.With().Str("component", "live_results_handler").Logger(),
	}
}

// StreamResults godoc
// GET /api/v1/staff/exams/:exam_id/results/live
// Sends a leaderboard snapshot, then one "result" event per accepted
// submission. A fresh snapshot follows at most every refreshInterval while
// results keep arriving, since ranks shift.
func (h *LiveResultsHandler) StreamResults(c *gin.Context) {
	examID, ok := bindExamID(c)
	if !ok {
		return
	}

	if !h.feed.Enabled() {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrFeedUnavailable)
		return
	}

	reqCtx := c.Request.Context()

	// Subscribe before the snapshot so no result falls between the two.
	pubsub, err := h.feed.Subscribe(reqCtx, examID)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Live feed subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrFeedUnavailable)
		return
	}
	defer pubsub.Close()

	summary, err := h.rankingService.Summary(reqCtx, examID)
	if err != nil {
		failWithError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{"type": "snapshot", "data": summary})
	c.Writer.Flush()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	dirty := false

	h.log.Info().Str("exam_id", examID.String()).Msg("Staff attached to live results")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Staff detached from live results")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			c.SSEvent("message", gin.H{"type": "result", "data": json.RawMessage(msg.Payload)})
			c.Writer.Flush()
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendSnapshot(c, reqCtx, examID)
			dirty = false

		case <-keepAliveTicker.C:
			c.SSEvent("message", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

func (h *LiveResultsHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	summary, err := h.rankingService.Summary(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to refresh leaderboard")
		return
	}

	c.SSEvent("message", gin.H{"type": "snapshot", "data": summary})
	c.Writer.Flush()
}
