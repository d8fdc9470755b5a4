// Package stats keeps engine counters fed by the event bus.
package stats

import (
	"context"
	"sync"

	"github.com/EBOLABOY/aeroscout/internal/core/event"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	JobsCreated      int64            `json:"jobs_created"`
	JobsCompleted    int64            `json:"jobs_completed"`
	JobsFailed       int64            `json:"jobs_failed"`
	ProviderFetches  map[string]int64 `json:"provider_fetches"`
	ProviderFailures map[string]int64 `json:"provider_failures"`
	DegradedReports  int64            `json:"degraded_reports"`
}

// Collector subscribes to the bus and aggregates counters for the stats
// endpoint.
type Collector struct {
	mu               sync.Mutex
	jobsCreated      int64
	jobsCompleted    int64
	jobsFailed       int64
	providerFetches  map[string]int64
	providerFailures map[string]int64
	degradedReports  int64

	unsubscribe []func()
}

func NewCollector(bus event.Bus) *Collector {
	c := &Collector{
		providerFetches:  make(map[string]int64),
		providerFailures: make(map[string]int64),
	}
	c.unsubscribe = []func(){
		bus.Subscribe(event.EventJobCreated, c.onJob),
		bus.Subscribe(event.EventJobCompleted, c.onJob),
		bus.Subscribe(event.EventJobFailed, c.onJob),
		bus.Subscribe(event.EventProviderFetched, c.onProvider),
		bus.Subscribe(event.EventAnalysisDegraded, c.onDegraded),
	}
	return c
}

// Close detaches the collector from the bus.
func (c *Collector) Close() {
	for _, fn := range c.unsubscribe {
		fn()
	}
}

func (c *Collector) onJob(_ context.Context, e event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case event.EventJobCreated:
		c.jobsCreated++
	case event.EventJobCompleted:
		c.jobsCompleted++
	case event.EventJobFailed:
		c.jobsFailed++
	}
	return nil
}

func (c *Collector) onProvider(_ context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.ProviderEvent)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if payload.Failed {
		c.providerFailures[payload.Provider]++
	} else {
		c.providerFetches[payload.Provider]++
	}
	return nil
}

func (c *Collector) onDegraded(context.Context, event.Event) error {
	c.mu.Lock()
	c.degradedReports++
	c.mu.Unlock()
	return nil
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	fetches := make(map[string]int64, len(c.providerFetches))
	for k, v := range c.providerFetches {
		fetches[k] = v
	}
	failures := make(map[string]int64, len(c.providerFailures))
	for k, v := range c.providerFailures {
		failures[k] = v
	}
	return Snapshot{
		JobsCreated:      c.jobsCreated,
		JobsCompleted:    c.jobsCompleted,
		JobsFailed:       c.jobsFailed,
		ProviderFetches:  fetches,
		ProviderFailures: failures,
		DegradedReports:  c.degradedReports,
	}
}
