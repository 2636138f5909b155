package events

import (
	"context"
	"sync"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

// AuditLog writes every event through the structured logger and keeps the
// most recent ones per cluster in memory.
type AuditLog struct {
	eventChan <-chan *models.Event
	history   map[string][]*models.Event
	capacity  int
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   sync.Once
}

func NewAuditLog(eventChan <-chan *models.Event, capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = 200
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AuditLog{
		eventChan: eventChan,
		history:   make(map[string][]*models.Event),
		capacity:  capacity,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *AuditLog) Start() {
	l.started.Do(func() { go l.run() })
}

// Stop ends the consumer goroutine and waits for it.
func (l *AuditLog) Stop() {
	l.cancel()
	l.started.Do(func() { close(l.done) })
	<-l.done
}

func (l *AuditLog) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.Record(event)
		}
	}
}

// Record logs one event and appends it to its cluster's history.
func (l *AuditLog) Record(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"cluster_id": event.ClusterID,
		"severity":   event.Severity,
		"event_id":   event.ID,
	})
	if event.TraceID != "" {
		entry = entry.WithField("trace_id", event.TraceID)
	}

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	h := append(l.history[event.ClusterID], event)
	if len(h) > l.capacity {
		h = h[len(h)-l.capacity:]
	}
	l.history[event.ClusterID] = h
}

// Recent returns up to limit events for a cluster, newest last.
func (l *AuditLog) Recent(clusterID string, limit int) []*models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h := l.history[clusterID]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]*models.Event, len(h))
	copy(out, h)
	return out
}
