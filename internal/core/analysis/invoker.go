package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/event"
	"github.com/EBOLABOY/aeroscout/internal/core/flight"
	"github.com/EBOLABOY/aeroscout/internal/core/retry"
)

var iataPattern = regexp.MustCompile(`\b[A-Z]{3}\b`)

// Analyzer is the model call the invoker depends on; *Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, model, system, user string) (string, error)
}

// Invoker wraps the model client with retry, model selection by caller class
// and the deterministic fallback. Report never fails the caller.
type Invoker struct {
	client    Analyzer
	model     string
	modelAuth string
	bus       event.Bus

	attempts  int
	baseDelay time.Duration
}

func NewInvoker(client Analyzer, model, modelAuthenticated string, bus event.Bus) *Invoker {
	if modelAuthenticated == "" {
		modelAuthenticated = model
	}
	return &Invoker{
		client:    client,
		model:     model,
		modelAuth: modelAuthenticated,
		bus:       bus,
		attempts:  3,
		baseDelay: 2 * time.Second,
	}
}

func (inv *Invoker) modelFor(authenticated bool) string {
	if authenticated {
		return inv.modelAuth
	}
	return inv.model
}

// Report asks the model for a free-text search report. A blank reply counts
// as a failed attempt. When every attempt fails the deterministic fallback
// is returned with degraded set.
func (inv *Invoker) Report(ctx context.Context, corpus flight.Corpus, req flight.SearchRequest, authenticated bool) (report string, degraded bool) {
	user, err := buildReportUser(corpus, req)
	if err != nil {
		log.Error().Err(err).Msg("report payload build failed, using fallback")
		inv.publishDegraded(ctx)
		return fallbackReport(corpus, req), true
	}

	model := inv.modelFor(authenticated)
	policy := retry.Policy{Attempts: inv.attempts, BaseDelay: inv.baseDelay}
	err = retry.Do(ctx, policy, "analysis report", func(ctx context.Context) error {
		reply, err := inv.client.Analyze(ctx, model, reportSystemPrompt, user)
		if err != nil {
			return err
		}
		if strings.TrimSpace(reply) == "" {
			return fmt.Errorf("model returned a blank report")
		}
		report = reply
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("analysis exhausted, serving fallback report")
		inv.publishDegraded(ctx)
		return fallbackReport(corpus, req), true
	}
	return report, false
}

// SuggestHubs asks the model for intermediate-hub candidates and extracts up
// to limit IATA codes from the reply.
func (inv *Invoker) SuggestHubs(ctx context.Context, req flight.SearchRequest, limit int) ([]string, error) {
	reply, err := inv.client.Analyze(ctx, inv.modelAuth, hubSystemPrompt, buildHubUser(req, limit))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var hubs []string
	for _, code := range iataPattern.FindAllString(reply, -1) {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		hubs = append(hubs, code)
		if len(hubs) == limit {
			break
		}
	}
	return hubs, nil
}

func (inv *Invoker) publishDegraded(ctx context.Context) {
	if inv.bus == nil {
		return
	}
	inv.bus.Publish(ctx, event.Event{Type: event.EventAnalysisDegraded})
}
