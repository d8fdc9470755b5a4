package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/server/api/middleware"
)

// SSE event names. The last event on a stream is always one of the terminal
// ones; after it the connection closes.
const (
	eventStatus       = "status"
	eventResult       = "result"
	eventNotFound     = "not_found"
	eventAccessDenied = "access_denied"
	eventTimeout      = "timeout"
	eventFailed       = "failed"
	eventCompleted    = "completed"
)

// StreamHandler serves job progress over Server-Sent Events.
type StreamHandler struct {
	jobs         *job.Manager
	jwtSecret    string
	pollInterval time.Duration
	maxWait      time.Duration
}

func NewStreamHandler(jobs *job.Manager, jwtSecret string, pollInterval, maxWait time.Duration) *StreamHandler {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Minute
	}
	return &StreamHandler{
		jobs:         jobs,
		jwtSecret:    jwtSecret,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

type streamEvent struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func statusEvent(j job.Job) streamEvent {
	return streamEvent{
		JobID:     j.ID,
		Status:    string(j.Status),
		Stage:     string(j.Stage),
		Progress:  j.Progress,
		Message:   j.Message,
		Error:     j.Error,
		UpdatedAt: j.UpdatedAt,
	}
}

// Handle streams progress updates until the job reaches a terminal state,
// the stream times out, or the client goes away. A disconnecting client
// never cancels the job itself.
func (h *StreamHandler) Handle(c echo.Context) error {
	id := c.Param("id")

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	owner, err := middleware.ParseBearer(c.Request().Header.Get("Authorization"), h.jwtSecret)
	if err != nil {
		return h.sendTerminal(c, eventAccessDenied, streamEvent{JobID: id, Error: err.Error()})
	}

	ctx := c.Request().Context()
	j, err := h.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return h.sendTerminal(c, eventNotFound, streamEvent{JobID: id, Error: "job not found"})
		}
		return h.sendTerminal(c, eventFailed, streamEvent{JobID: id, Error: "store unavailable"})
	}
	if j.Owner != job.OwnerAnonymous && j.Owner != owner {
		return h.sendTerminal(c, eventAccessDenied, streamEvent{JobID: id, Error: "job belongs to another user"})
	}

	// The initial snapshot always goes out, so late subscribers see the
	// current state immediately.
	if err := h.send(c, eventStatus, statusEvent(j)); err != nil {
		return nil
	}
	if j.Status.Terminal() {
		return h.finish(c, id, j)
	}

	deadline := time.NewTimer(h.maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	last := j
	for {
		select {
		case <-ctx.Done():
			// Client went away; the runner keeps working.
			log.Debug().Str("job_id", id).Msg("stream client disconnected")
			return nil
		case <-deadline.C:
			return h.sendTerminal(c, eventTimeout, streamEvent{
				JobID: id,
				Error: fmt.Sprintf("no terminal state within %s", h.maxWait),
			})
		case <-ticker.C:
			current, err := h.jobs.Get(ctx, id)
			if err != nil {
				if errors.Is(err, job.ErrNotFound) {
					return h.sendTerminal(c, eventNotFound, streamEvent{JobID: id, Error: "job expired"})
				}
				log.Warn().Err(err).Str("job_id", id).Msg("stream poll failed")
				continue
			}
			if !changed(last, current) {
				continue
			}
			last = current
			if err := h.send(c, eventStatus, statusEvent(current)); err != nil {
				return nil
			}
			if current.Status.Terminal() {
				return h.finish(c, id, current)
			}
		}
	}
}

func changed(a, b job.Job) bool {
	return a.Status != b.Status || a.Progress != b.Progress || !a.UpdatedAt.Equal(b.UpdatedAt)
}

// finish emits the terminal event for a job that reached Completed or
// Failed, embedding the result when there is one.
func (h *StreamHandler) finish(c echo.Context, id string, j job.Job) error {
	if j.Status == job.StatusFailed {
		return h.sendTerminal(c, eventFailed, statusEvent(j))
	}

	result, err := h.jobs.GetResult(c.Request().Context(), id)
	if err != nil {
		log.Warn().Err(err).Str("job_id", id).Msg("completed job has no readable result")
		return h.sendTerminal(c, eventCompleted, statusEvent(j))
	}
	payload := struct {
		JobID      string         `json:"job_id"`
		Report     string         `json:"report"`
		Generated  bool           `json:"generated,omitempty"`
		Provenance map[string]int `json:"provenance,omitempty"`
		SearchedAt time.Time      `json:"searched_at"`
	}{
		JobID:      id,
		Report:     result.Report,
		Generated:  result.Generated,
		Provenance: result.Provenance,
		SearchedAt: result.SearchedAt,
	}
	if err := h.send(c, eventResult, payload); err != nil {
		return nil
	}
	return h.sendTerminal(c, eventCompleted, statusEvent(j))
}

func (h *StreamHandler) send(c echo.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func (h *StreamHandler) sendTerminal(c echo.Context, name string, payload any) error {
	_ = h.send(c, name, payload)
	return nil
}
