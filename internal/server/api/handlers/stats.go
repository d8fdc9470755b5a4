package handlers

import (
	"context"

	"github.com/EBOLABOY/aeroscout/internal/core/stats"
)

type StatsHandler struct {
	collector *stats.Collector
}

func NewStatsHandler(collector *stats.Collector) *StatsHandler {
	return &StatsHandler{collector: collector}
}

type EmptyInput struct{}

type StatsOutput struct {
	Body stats.Snapshot
}

func (h *StatsHandler) Get(_ context.Context, _ *EmptyInput) (*StatsOutput, error) {
	return &StatsOutput{Body: h.collector.Snapshot()}, nil
}
