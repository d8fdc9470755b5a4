// Package job implements the asynchronous job state machine backed by the
// key-value store.
package job

import (
	"time"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Stage string

const (
	StageInitialization Stage = "initialization"
	StageSearching      Stage = "searching"
	StageAnalysis       Stage = "analysis"
	StageFinalizing     Stage = "finalizing"
)

// StageForProgress maps a progress fraction onto the coarse pipeline stage.
func StageForProgress(p float64) Stage {
	switch {
	case p < 0.25:
		return StageInitialization
	case p < 0.50:
		return StageSearching
	case p < 0.75:
		return StageAnalysis
	default:
		return StageFinalizing
	}
}

// TypeFlightSearch is the only job type currently produced.
const TypeFlightSearch = "flight_search"

// OwnerAnonymous marks jobs created without authentication. Anonymous jobs
// are readable by anyone.
const OwnerAnonymous = "anonymous"

type Job struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Status    Status               `json:"status"`
	Stage     Stage                `json:"stage"`
	Progress  float64              `json:"progress"`
	Message   string               `json:"message,omitempty"`
	Error     string               `json:"error,omitempty"`
	Owner     string               `json:"owner"`
	Params    flight.SearchRequest `json:"params"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Result is the finished search output stored alongside the job.
type Result struct {
	Report     string         `json:"report"`
	Provenance map[string]int `json:"provenance,omitempty"`
	Generated  bool           `json:"generated,omitempty"`
	SearchedAt time.Time      `json:"searched_at"`
}
