// Package runner drives one search job from Pending to a terminal state.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/core/normalize"
	"github.com/EBOLABOY/aeroscout/internal/core/search"
)

// Progress milestones reported before each stage's work starts.
const (
	progressInit      = 0.05
	progressSearching = 0.30
	progressAnalysis  = 0.55
	progressFinal     = 0.80
	progressDone      = 1.0
)

// Reporter produces the analysis report for a finished search.
type Reporter interface {
	Report(ctx context.Context, corpus flight.Corpus, req flight.SearchRequest, authenticated bool) (string, bool)
}

// Runner executes search jobs in the background. Launch returns immediately;
// the job reaches Completed or Failed on its own.
type Runner struct {
	jobs        *job.Manager
	coordinator *search.Coordinator
	merger      *normalize.Merger
	reporter    Reporter
	timeout     time.Duration
}

func New(jobs *job.Manager, coordinator *search.Coordinator, merger *normalize.Merger, reporter Reporter, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{
		jobs:        jobs,
		coordinator: coordinator,
		merger:      merger,
		reporter:    reporter,
		timeout:     timeout,
	}
}

// Launch starts the job in its own goroutine. The job's lifetime is bound to
// the runner's timeout, not to the caller's context.
func (r *Runner) Launch(id string, req flight.SearchRequest, caller search.CallerClass) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.run(ctx, id, req, caller)
	}()
}

func (r *Runner) run(ctx context.Context, id string, req flight.SearchRequest, caller search.CallerClass) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("job_id", id).Interface("panic", p).Msg("search job panicked")
			r.fail(ctx, id, fmt.Sprintf("internal error: %v", p))
		}
	}()

	if err := r.advance(ctx, id, progressInit, "preparing search"); err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("job vanished before start")
		return
	}

	if err := r.advance(ctx, id, progressSearching, "querying providers"); err != nil {
		r.fail(ctx, id, err.Error())
		return
	}
	results := r.coordinator.Run(ctx, id, req, caller)

	if err := r.advance(ctx, id, progressAnalysis, "analyzing results"); err != nil {
		r.fail(ctx, id, err.Error())
		return
	}
	corpus := r.merger.Merge(results, caller != search.CallerAuthenticated)
	report, degraded := r.reporter.Report(ctx, corpus, req, caller == search.CallerAuthenticated)

	if err := r.advance(ctx, id, progressFinal, "saving result"); err != nil {
		r.fail(ctx, id, err.Error())
		return
	}
	result := job.Result{
		Report:     report,
		Generated:  degraded,
		Provenance: provenance(corpus),
	}
	if err := r.jobs.SaveResult(ctx, id, result); err != nil {
		r.fail(ctx, id, fmt.Sprintf("saving result: %v", err))
		return
	}

	done := progressDone
	if err := r.jobs.Transition(ctx, id, job.TransitionOpts{
		Status:   job.StatusCompleted,
		Progress: &done,
		Message:  "search complete",
	}); err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("completing job failed")
	}
}

func (r *Runner) advance(ctx context.Context, id string, progress float64, message string) error {
	return r.jobs.Transition(ctx, id, job.TransitionOpts{
		Status:   job.StatusProcessing,
		Progress: &progress,
		Message:  message,
	})
}

func (r *Runner) fail(ctx context.Context, id, reason string) {
	if err := r.jobs.Transition(ctx, id, job.TransitionOpts{
		Status: job.StatusFailed,
		Error:  reason,
	}); err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("failing job failed")
	}
}

// provenance counts records contributed per source.
func provenance(corpus flight.Corpus) map[string]int {
	counts := make(map[string]int)
	for _, record := range corpus.All() {
		counts[record.Source]++
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}
