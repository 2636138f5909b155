package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

type MessageType string

const (
	MessageTypeCycle        MessageType = "cycle"
	MessageTypeMetric       MessageType = "metric"
	MessageTypeDecision     MessageType = "decision"
	MessageTypeResize       MessageType = "resize"
	MessageTypeError        MessageType = "error"
	MessageTypeSubscription MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType          `json:"type"`
	Event     models.EventType     `json:"event,omitempty"`
	ClusterID string               `json:"cluster_id"`
	Timestamp time.Time            `json:"timestamp"`
	Severity  models.EventSeverity `json:"severity,omitempty"`
	Message   string               `json:"message,omitempty"`
	TraceID   string               `json:"trace_id,omitempty"`
	Data      interface{}          `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, clusterID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		ClusterID: clusterID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// FromEvent converts a pipeline event. It returns nil for event types that
// are not streamed.
func FromEvent(event *models.Event) *OutgoingMessage {
	msgType := messageTypeFor(event.Type)
	if msgType == "" {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		Event:     event.Type,
		ClusterID: event.ClusterID,
		Timestamp: event.Timestamp,
		Severity:  event.Severity,
		Message:   event.Message,
		TraceID:   event.TraceID,
		Data:      event.Data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

func messageTypeFor(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeCycleStarted, models.EventTypeCycleSkipped:
		return MessageTypeCycle
	case models.EventTypeMetricEvaluated, models.EventTypeMetricUnavailable:
		return MessageTypeMetric
	case models.EventTypeDecisionMade:
		return MessageTypeDecision
	case models.EventTypeResizeRequested, models.EventTypeResizeComplete, models.EventTypeResizeFailed:
		return MessageTypeResize
	case models.EventTypeError:
		return MessageTypeError
	default:
		return ""
	}
}
