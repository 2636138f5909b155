package websocket

import (
	"sync"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

// EventBridge streams pipeline events to the hub. Events are encoded once
// and only when at least one client is connected.
type EventBridge struct {
	hub    *Hub
	events <-chan *models.Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewEventBridge(hub *Hub, events <-chan *models.Event) *EventBridge {
	return &EventBridge{
		hub:    hub,
		events: events,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.WithComponent("websocket").Info("Event bridge started")
}

// Stop is safe to call more than once.
func (b *EventBridge) Stop() {
	b.once.Do(func() { close(b.stop) })
	<-b.done
}

func (b *EventBridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case event, ok := <-b.events:
			if !ok {
				logger.WithComponent("websocket").Info("Event stream closed, bridge exiting")
				return
			}
			if b.hub.ClientCount() == 0 {
				continue
			}
			if msg := FromEvent(event); msg != nil {
				b.hub.BroadcastToCluster(event.ClusterID, msg.JSON())
			}
		}
	}
}
