package models

import "time"

type EventType string

const (
	EventTypeCycleStarted      EventType = "cycle_started"
	EventTypeCycleSkipped      EventType = "cycle_skipped"
	EventTypeMetricEvaluated   EventType = "metric_evaluated"
	EventTypeMetricUnavailable EventType = "metric_unavailable"
	EventTypeDecisionMade      EventType = "decision_made"
	EventTypeResizeRequested   EventType = "resize_requested"
	EventTypeResizeComplete    EventType = "resize_complete"
	EventTypeResizeFailed      EventType = "resize_failed"
	EventTypeError             EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event is published on the event bus for every observable step of a cycle.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	ClusterID string        `json:"cluster_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      any           `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, clusterID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		ClusterID: clusterID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data any) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}