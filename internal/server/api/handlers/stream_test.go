package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/core/store"
)

const testSecret = "stream-test-secret"

func newStreamFixture(t *testing.T, poll, maxWait time.Duration) (*StreamHandler, *job.Manager) {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { s.Close() })
	jobs := job.NewManager(s, nil, time.Hour)
	return NewStreamHandler(jobs, testSecret, poll, maxWait), jobs
}

func streamRequest(t *testing.T, h *StreamHandler, id, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id+"/stream", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/jobs/:id/stream")
	c.SetParamNames("id")
	c.SetParamValues(id)

	require.NoError(t, h.Handle(c))
	return rec
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestStreamMissingJob(t *testing.T) {
	h, _ := newStreamFixture(t, 10*time.Millisecond, time.Second)
	rec := streamRequest(t, h, "ghost", "")

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rec.Body.String(), "event: not_found")
	assert.NotContains(t, rec.Body.String(), "event: status")
}

func TestStreamForeignOwner(t *testing.T) {
	h, jobs := newStreamFixture(t, 10*time.Millisecond, time.Second)
	id, err := jobs.Create(context.Background(), job.TypeFlightSearch, validBody(), "alice")
	require.NoError(t, err)

	rec := streamRequest(t, h, id, signToken(t, "bob"))
	assert.Contains(t, rec.Body.String(), "event: access_denied")
}

func TestStreamInvalidToken(t *testing.T) {
	h, jobs := newStreamFixture(t, 10*time.Millisecond, time.Second)
	id, err := jobs.Create(context.Background(), job.TypeFlightSearch, validBody(), "")
	require.NoError(t, err)

	rec := streamRequest(t, h, id, "garbage")
	assert.Contains(t, rec.Body.String(), "event: access_denied")
}

func TestStreamAlreadyCompleted(t *testing.T) {
	h, jobs := newStreamFixture(t, time.Hour, time.Hour) // poll must never fire
	ctx := context.Background()
	id, err := jobs.Create(ctx, job.TypeFlightSearch, validBody(), "")
	require.NoError(t, err)
	require.NoError(t, jobs.SaveResult(ctx, id, job.Result{Report: "cheap flights"}))
	done := 1.0
	require.NoError(t, jobs.Transition(ctx, id, job.TransitionOpts{Status: job.StatusCompleted, Progress: &done}))

	start := time.Now()
	rec := streamRequest(t, h, id, "")
	assert.Less(t, time.Since(start), time.Second, "no polling loop for finished jobs")

	body := rec.Body.String()
	assert.Contains(t, body, "event: status", "initial snapshot always sent")
	assert.Contains(t, body, `"updated_at":`, "snapshot carries the job's freshness")
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, "cheap flights")
	assert.Contains(t, body, "event: completed")
}

func TestStreamFollowsProgressToCompletion(t *testing.T) {
	h, jobs := newStreamFixture(t, 10*time.Millisecond, 5*time.Second)
	ctx := context.Background()
	id, err := jobs.Create(ctx, job.TypeFlightSearch, validBody(), "")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		p := 0.30
		jobs.Transition(ctx, id, job.TransitionOpts{Status: job.StatusProcessing, Progress: &p})
		time.Sleep(30 * time.Millisecond)
		jobs.SaveResult(ctx, id, job.Result{Report: "done"})
		done := 1.0
		jobs.Transition(ctx, id, job.TransitionOpts{Status: job.StatusCompleted, Progress: &done})
	}()

	body := streamRequest(t, h, id, "").Body.String()
	assert.Contains(t, body, `"progress":0.3`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, "event: completed")
}

func TestStreamFailedJob(t *testing.T) {
	h, jobs := newStreamFixture(t, 10*time.Millisecond, 5*time.Second)
	ctx := context.Background()
	id, err := jobs.Create(ctx, job.TypeFlightSearch, validBody(), "")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		jobs.Transition(ctx, id, job.TransitionOpts{Status: job.StatusFailed, Error: "all providers down"})
	}()

	body := streamRequest(t, h, id, "").Body.String()
	assert.Contains(t, body, "event: failed")
	assert.Contains(t, body, "all providers down")
	assert.NotContains(t, body, "event: result")
}

func TestStreamTimeout(t *testing.T) {
	h, jobs := newStreamFixture(t, 10*time.Millisecond, 50*time.Millisecond)
	id, err := jobs.Create(context.Background(), job.TypeFlightSearch, validBody(), "")
	require.NoError(t, err)

	body := streamRequest(t, h, id, "").Body.String()
	assert.Contains(t, body, "event: timeout")
}
