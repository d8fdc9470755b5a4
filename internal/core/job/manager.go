package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/event"
	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/store"
)

var (
	// ErrNotFound is returned when a job id is unknown or expired.
	ErrNotFound = errors.New("job not found")
	// ErrStoreUnavailable wraps store failures during job creation.
	ErrStoreUnavailable = errors.New("job store unavailable")
	// ErrNoResult is returned when the job has no stored result yet.
	ErrNoResult = errors.New("job result not available")
)

func infoKey(id string) string   { return "job:" + id + ":info" }
func statusKey(id string) string { return "job:" + id + ":status" }
func resultKey(id string) string { return "job:" + id + ":result" }

// statusRecord is the mutable half of a job, stored under its own key so
// transitions never rewrite the immutable creation info.
type statusRecord struct {
	Status    Status    `json:"status"`
	Stage     Stage     `json:"stage"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// infoRecord is the immutable half, written once at creation.
type infoRecord struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Owner     string               `json:"owner"`
	Params    flight.SearchRequest `json:"params"`
	CreatedAt time.Time            `json:"created_at"`
}

// TransitionOpts describes a single state transition. Nil optional fields
// leave the current value untouched.
type TransitionOpts struct {
	Status   Status
	Progress *float64
	Message  string
	Stage    *Stage
	Error    string
}

type Manager struct {
	store store.Store
	bus   event.Bus
	ttl   time.Duration
}

func NewManager(s store.Store, bus event.Bus, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{store: s, bus: bus, ttl: ttl}
}

// Create persists a new pending job and verifies the write by reading it
// back. On any failure both keys are rolled back and no id is issued.
func (m *Manager) Create(ctx context.Context, jobType string, params flight.SearchRequest, owner string) (string, error) {
	if owner == "" {
		owner = OwnerAnonymous
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	info := infoRecord{
		ID:        id,
		Type:      jobType,
		Owner:     owner,
		Params:    params,
		CreatedAt: now,
	}
	status := statusRecord{
		Status:    StatusPending,
		Stage:     StageInitialization,
		UpdatedAt: now,
	}

	if err := m.writeJSON(ctx, infoKey(id), info); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := m.writeJSON(ctx, statusKey(id), status); err != nil {
		m.rollback(ctx, id)
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// Read-back guards against a store that accepts writes it will not
	// serve; an unreadable job must not be handed to a client.
	var check infoRecord
	if err := m.readJSON(ctx, infoKey(id), &check); err != nil || check.ID != id {
		m.rollback(ctx, id)
		if err == nil {
			err = fmt.Errorf("read-back mismatch for %s", id)
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	m.publish(ctx, event.EventJobCreated, event.JobEvent{
		JobID:  id,
		Owner:  owner,
		Status: string(StatusPending),
		Stage:  string(StageInitialization),
	})
	log.Info().Str("job_id", id).Str("owner", owner).Str("type", jobType).Msg("job created")
	return id, nil
}

// Transition applies opts to the job's mutable state. Progress never
// decreases; the stage is recomputed from progress unless given explicitly.
func (m *Manager) Transition(ctx context.Context, id string, opts TransitionOpts) error {
	var status statusRecord
	if err := m.readJSON(ctx, statusKey(id), &status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if status.Status.Terminal() {
		return fmt.Errorf("job %s is already %s", id, status.Status)
	}

	if opts.Status != "" {
		status.Status = opts.Status
	}
	if opts.Progress != nil {
		p := *opts.Progress
		if p > 1 {
			p = 1
		}
		if p > status.Progress {
			status.Progress = p
		}
	}
	if opts.Stage != nil {
		status.Stage = *opts.Stage
	} else if opts.Progress != nil {
		status.Stage = StageForProgress(status.Progress)
	}
	if opts.Message != "" {
		status.Message = opts.Message
	}
	if opts.Error != "" {
		status.Error = opts.Error
	}
	status.UpdatedAt = time.Now().UTC()

	if err := m.writeJSON(ctx, statusKey(id), status); err != nil {
		return err
	}

	eventType := event.EventJobProgress
	switch status.Status {
	case StatusCompleted:
		eventType = event.EventJobCompleted
	case StatusFailed:
		eventType = event.EventJobFailed
	}
	m.publish(ctx, eventType, event.JobEvent{
		JobID:    id,
		Status:   string(status.Status),
		Stage:    string(status.Stage),
		Progress: status.Progress,
		Error:    status.Error,
	})
	return nil
}

// Get returns the full job, merging the immutable and mutable halves.
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	var info infoRecord
	if err := m.readJSON(ctx, infoKey(id), &info); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	var status statusRecord
	if err := m.readJSON(ctx, statusKey(id), &status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return Job{
		ID:        info.ID,
		Type:      info.Type,
		Status:    status.Status,
		Stage:     status.Stage,
		Progress:  status.Progress,
		Message:   status.Message,
		Error:     status.Error,
		Owner:     info.Owner,
		Params:    info.Params,
		CreatedAt: info.CreatedAt,
		UpdatedAt: status.UpdatedAt,
	}, nil
}

// SaveResult stores the finished search output under the job's result key.
func (m *Manager) SaveResult(ctx context.Context, id string, result Result) error {
	if result.SearchedAt.IsZero() {
		result.SearchedAt = time.Now().UTC()
	}
	return m.writeJSON(ctx, resultKey(id), result)
}

func (m *Manager) GetResult(ctx context.Context, id string) (Result, error) {
	var result Result
	if err := m.readJSON(ctx, resultKey(id), &result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrNoResult
		}
		return Result{}, err
	}
	return result, nil
}

// Delete removes all three keys of a job.
func (m *Manager) Delete(ctx context.Context, id string) error {
	var firstErr error
	for _, key := range []string{infoKey(id), statusKey(id), resultKey(id)} {
		if err := m.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) rollback(ctx context.Context, id string) {
	for _, key := range []string{infoKey(id), statusKey(id)} {
		if err := m.store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("job create rollback failed")
		}
	}
}

func (m *Manager) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return m.store.Set(ctx, key, data, m.ttl)
}

func (m *Manager) readJSON(ctx context.Context, key string, v any) error {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, t event.EventType, payload event.JobEvent) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, event.Event{Type: t, Payload: payload})
}
