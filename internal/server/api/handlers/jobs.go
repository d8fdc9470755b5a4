package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/core/runner"
	"github.com/EBOLABOY/aeroscout/internal/server/api/middleware"
)

type JobsHandler struct {
	jobs   *job.Manager
	runner *runner.Runner
}

func NewJobsHandler(jobs *job.Manager, r *runner.Runner) *JobsHandler {
	return &JobsHandler{jobs: jobs, runner: r}
}

type CreateJobInput struct {
	Body flight.SearchRequest
}

type CreateJobBody struct {
	JobID   string `json:"job_id" doc:"Job ID to poll or stream"`
	Status  string `json:"status" doc:"Initial job status"`
	PollURL string `json:"poll_url" doc:"Status endpoint for this job"`
}

type CreateJobOutput struct {
	Body CreateJobBody
}

func (h *JobsHandler) Create(ctx context.Context, input *CreateJobInput) (*CreateJobOutput, error) {
	req := input.Body
	if err := req.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	owner := middleware.GetOwner(ctx)
	caller := middleware.GetCallerClass(ctx)

	id, err := h.jobs.Create(ctx, job.TypeFlightSearch, req, owner)
	if err != nil {
		if errors.Is(err, job.ErrStoreUnavailable) {
			log.Error().Err(err).Msg("search job creation failed")
			return nil, huma.Error503ServiceUnavailable("job store unavailable, try again later")
		}
		return nil, err
	}

	h.runner.Launch(id, req, caller)

	return &CreateJobOutput{Body: CreateJobBody{
		JobID:   id,
		Status:  string(job.StatusPending),
		PollURL: fmt.Sprintf("/api/v1/jobs/%s", id),
	}}, nil
}

type JobIDInput struct {
	ID string `path:"id" doc:"Job ID"`
}

type JobStatusBody struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobStatusOutput struct {
	Body JobStatusBody
}

func newJobStatusBody(j job.Job) JobStatusBody {
	return JobStatusBody{
		ID:        j.ID,
		Type:      j.Type,
		Status:    string(j.Status),
		Stage:     string(j.Stage),
		Progress:  j.Progress,
		Message:   j.Message,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// loadVisible fetches the job and applies the ownership rule: anonymous jobs
// are public, owned jobs are visible to their owner only.
func (h *JobsHandler) loadVisible(ctx context.Context, id string) (job.Job, error) {
	j, err := h.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return job.Job{}, huma.Error404NotFound("job not found")
		}
		return job.Job{}, err
	}
	if j.Owner != job.OwnerAnonymous && j.Owner != middleware.GetOwner(ctx) {
		return job.Job{}, huma.Error403Forbidden("job belongs to another user")
	}
	return j, nil
}

func (h *JobsHandler) Get(ctx context.Context, input *JobIDInput) (*JobStatusOutput, error) {
	j, err := h.loadVisible(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &JobStatusOutput{Body: newJobStatusBody(j)}, nil
}

type JobResultBody struct {
	JobID      string         `json:"job_id"`
	Report     string         `json:"report" doc:"Analysis report text"`
	Generated  bool           `json:"generated,omitempty" doc:"True when the report is the deterministic fallback"`
	Provenance map[string]int `json:"provenance,omitempty" doc:"Records contributed per provider"`
	SearchedAt time.Time      `json:"searched_at"`
}

type JobResultOutput struct {
	Body JobResultBody
}

func (h *JobsHandler) GetResult(ctx context.Context, input *JobIDInput) (*JobResultOutput, error) {
	j, err := h.loadVisible(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusCompleted {
		return nil, huma.Error409Conflict(fmt.Sprintf("job is %s, result not ready", j.Status))
	}

	result, err := h.jobs.GetResult(ctx, input.ID)
	if err != nil {
		if errors.Is(err, job.ErrNoResult) {
			return nil, huma.Error409Conflict("result not ready")
		}
		return nil, err
	}
	return &JobResultOutput{Body: JobResultBody{
		JobID:      input.ID,
		Report:     result.Report,
		Generated:  result.Generated,
		Provenance: result.Provenance,
		SearchedAt: result.SearchedAt,
	}}, nil
}
