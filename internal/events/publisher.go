package events

import (
	"fmt"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

// Publisher builds typed events for one pipeline.
type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) CycleStarted(clusterID string, state *models.ClusterState) {
	msg := fmt.Sprintf("Cycle started at %d CKU", state.CurrentCapacity)
	p.publish(models.NewEvent(models.EventTypeCycleStarted, clusterID, msg).WithData(state))
}

func (p *Publisher) CycleSkipped(clusterID, reason string, state *models.ClusterState) {
	p.publish(models.NewEvent(models.EventTypeCycleSkipped, clusterID, "Cycle skipped: "+reason).
		WithData(map[string]any{"reason": reason, "state": state}))
}

func (p *Publisher) MetricEvaluated(clusterID string, eval models.MetricEvaluation) {
	msg := fmt.Sprintf("Metric %s voted %s", eval.Metric, eval.Verdict)
	event := models.NewEvent(models.EventTypeMetricEvaluated, clusterID, msg).WithData(eval)
	if eval.Outcome == models.OutcomeFailed {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) MetricUnavailable(clusterID string, kind models.MetricKind, err error) {
	msg := fmt.Sprintf("Metric %s unavailable", kind)
	p.publish(models.NewEvent(models.EventTypeMetricUnavailable, clusterID, msg).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]any{"metric": kind, "error": err.Error()}))
}

func (p *Publisher) DecisionMade(clusterID string, decision *models.ScalingDecision) {
	msg := fmt.Sprintf("Scaling decision: %s (%s)", decision.Action, decision.Reason)
	p.publish(models.NewEvent(models.EventTypeDecisionMade, clusterID, msg).WithData(decision))
}

func (p *Publisher) ResizeRequested(clusterID string, record *models.ResizeRecord) {
	msg := fmt.Sprintf("Resize requested: %d -> %d CKU", record.CapacityBefore, record.CapacityAfter)
	if record.Status == models.ResizeSkipped {
		msg = fmt.Sprintf("Dry run: would resize %d -> %d CKU", record.CapacityBefore, record.CapacityAfter)
	}
	p.publish(models.NewEvent(models.EventTypeResizeRequested, clusterID, msg).WithData(record))
}

func (p *Publisher) ResizeComplete(clusterID string, capacity int) {
	msg := fmt.Sprintf("Resize complete at %d CKU", capacity)
	p.publish(models.NewEvent(models.EventTypeResizeComplete, clusterID, msg).
		WithData(map[string]any{"cku": capacity}))
}

func (p *Publisher) ResizeFailed(clusterID string, record *models.ResizeRecord) {
	p.publish(models.NewEvent(models.EventTypeResizeFailed, clusterID, "Resize failed: "+record.Error).
		WithSeverity(models.SeverityCritical).
		WithData(record))
}

func (p *Publisher) Error(clusterID string, message string, err error) {
	p.publish(models.NewEvent(models.EventTypeError, clusterID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]any{"error": err.Error()}))
}
