package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/api/http/dto"
	"github.com/EternisAI/agent-registry/internal/events"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

type EventsHandler struct {
	feed *events.Feed
}

func NewEventsHandler(feed *events.Feed) *EventsHandler {
	return &EventsHandler{feed: feed}
}

// ListEvents pages through committed events for indexers
// GET /events?after=&limit=
func (h *EventsHandler) ListEvents(c *gin.Context) {
	after, err := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after cursor"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultEventsLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	page := h.feed.Read(after, limit)
	next := after
	if len(page) > 0 {
		next = page[len(page)-1].Cursor
	}

	c.JSON(http.StatusOK, dto.EventsResponse{Events: page, Next: next})
}
