package event

import "time"

type EventType string

const (
	// Job lifecycle
	EventJobCreated   EventType = "job.created"
	EventJobProgress  EventType = "job.progress"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"

	// Search pipeline
	EventProviderFetched  EventType = "provider.fetched"
	EventAnalysisDegraded EventType = "analysis.degraded"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type JobEvent struct {
	JobID    string
	Owner    string
	Status   string
	Stage    string
	Progress float64
	Error    string
}

type ProviderEvent struct {
	JobID    string
	Provider string
	Records  int
	Failed   bool
}
