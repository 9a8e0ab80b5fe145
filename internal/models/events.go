package models

import "time"

// Event types
const (
	EventTypeQueryExecuted     = "QUERY_EXECUTED"
	EventTypeWorkloadCompleted = "WORKLOAD_COMPLETED"
)

// Query outcomes recorded on events and metrics
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryExecutedEvent is published after each order summary request
type QueryExecutedEvent struct {
	BaseEvent
	Strategy      string `json:"strategy"`
	Status        string `json:"status"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	Rows          int    `json:"rows"`
	TotalElements int64  `json:"total_elements"`
	DurationMs    int64  `json:"duration_ms"`
	Outcome       string `json:"outcome"`
	ErrorKind     string `json:"error_kind,omitempty"`
}

// WorkloadCompletedEvent is published after each CPU workload run
type WorkloadCompletedEvent struct {
	BaseEvent
	Strategy   string `json:"strategy"`
	Tasks      int    `json:"tasks"`
	WorkMs     int    `json:"work_ms"`
	DurationMs int64  `json:"duration_ms"`
}
