package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/OldStager01/cku-autoscaler/internal/collector"
	"github.com/OldStager01/cku-autoscaler/internal/decision"
	"github.com/OldStager01/cku-autoscaler/internal/events"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/internal/scaler"
	"github.com/OldStager01/cku-autoscaler/pkg/config"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var (
	ErrPipelineExists   = errors.New("pipeline already exists")
	ErrPipelineNotFound = errors.New("no pipeline found")
)

type Orchestrator struct {
	config         *config.Config
	decisionConfig decision.Config
	eventBus       *events.EventBus
	auditLog       *events.AuditLog
	metrics        *metrics.Metrics
	pipelines      map[string]*Pipeline
	mu             sync.RWMutex
}

func New(cfg *config.Config, m *metrics.Metrics) (*Orchestrator, error) {
	decisionCfg, err := cfg.Autoscaling.ToDecisionConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid autoscaling config: %w", err)
	}
	if m == nil {
		m = metrics.Get()
	}

	eventBus := events.NewEventBus(cfg.Events.BufferSize)

	// Audit log sees every event
	auditLog := events.NewAuditLog(eventBus.SubscribeAll(), cfg.Events.HistorySize)

	return &Orchestrator{
		config:         cfg,
		decisionConfig: decisionCfg,
		eventBus:       eventBus,
		auditLog:       auditLog,
		metrics:        m,
		pipelines:      make(map[string]*Pipeline),
	}, nil
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.auditLog.Start()
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.mu.Lock()
	for clusterID, pipeline := range o.pipelines {
		logger.Infof("Stopping pipeline for cluster %s", clusterID)
		pipeline.Stop()
	}
	o.pipelines = make(map[string]*Pipeline)
	o.mu.Unlock()

	o.eventBus.Close()
	o.auditLog.Stop()

	logger.Info("Orchestrator stopped")
}

// AddCluster registers a pipeline without starting its loop.
func (o *Orchestrator) AddCluster(cluster *models.Cluster, coll collector.Collector, scal scaler.Scaler) (*Pipeline, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.pipelines[cluster.ID]; exists {
		return nil, fmt.Errorf("%w for cluster %s", ErrPipelineExists, cluster.ID)
	}

	a := o.config.Autoscaling
	pipeline := NewPipeline(PipelineConfig{
		Cluster:      cluster,
		PollInterval: a.PollInterval,
		CycleTimeout: a.CycleTimeout,
		Interval:     a.Interval,
		DryRun:       a.DryRun,
		Collector:    coll,
		Scaler:       scal,
		Engine:       decision.NewEngine(o.decisionConfig),
		Publisher:    events.NewPublisher(o.eventBus),
		Metrics:      o.metrics,
	})

	o.pipelines[cluster.ID] = pipeline
	return pipeline, nil
}

func (o *Orchestrator) StartCluster(cluster *models.Cluster, coll collector.Collector, scal scaler.Scaler) error {
	pipeline, err := o.AddCluster(cluster, coll, scal)
	if err != nil {
		return err
	}

	if err := pipeline.Start(); err != nil {
		o.mu.Lock()
		delete(o.pipelines, cluster.ID)
		o.mu.Unlock()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	logger.WithCluster(cluster.ID).Info("Cluster pipeline started")
	return nil
}

func (o *Orchestrator) StopCluster(clusterID string) error {
	o.mu.Lock()
	pipeline, exists := o.pipelines[clusterID]
	if exists {
		delete(o.pipelines, clusterID)
	}
	o.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w for cluster %s", ErrPipelineNotFound, clusterID)
	}

	pipeline.Stop()
	o.metrics.Forget(clusterID)
	logger.WithCluster(clusterID).Info("Cluster pipeline stopped")

	return nil
}

func (o *Orchestrator) pipeline(clusterID string) (*Pipeline, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pipeline, exists := o.pipelines[clusterID]
	if !exists {
		return nil, fmt.Errorf("%w for cluster %s", ErrPipelineNotFound, clusterID)
	}
	return pipeline, nil
}

func (o *Orchestrator) PauseCluster(clusterID string) error {
	pipeline, err := o.pipeline(clusterID)
	if err != nil {
		return err
	}
	pipeline.Pause()
	return nil
}

func (o *Orchestrator) ResumeCluster(clusterID string) error {
	pipeline, err := o.pipeline(clusterID)
	if err != nil {
		return err
	}
	pipeline.Resume()
	return nil
}

// RunOnce runs a single cycle for the cluster outside its poll loop.
func (o *Orchestrator) RunOnce(ctx context.Context, clusterID string) (*models.ScalingDecision, error) {
	pipeline, err := o.pipeline(clusterID)
	if err != nil {
		return nil, err
	}
	return pipeline.RunOnce(ctx)
}

func (o *Orchestrator) GetCluster(clusterID string) (models.ClusterSnapshot, error) {
	pipeline, err := o.pipeline(clusterID)
	if err != nil {
		return models.ClusterSnapshot{}, err
	}
	return pipeline.Snapshot(), nil
}

// ListClusters returns snapshots ordered by cluster ID.
func (o *Orchestrator) ListClusters() []models.ClusterSnapshot {
	o.mu.RLock()
	snapshots := make([]models.ClusterSnapshot, 0, len(o.pipelines))
	for _, pipeline := range o.pipelines {
		snapshots = append(snapshots, pipeline.Snapshot())
	}
	o.mu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots
}

func (o *Orchestrator) ListRunningClusters() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	clusters := make([]string, 0, len(o.pipelines))
	for clusterID, pipeline := range o.pipelines {
		if pipeline.IsRunning() {
			clusters = append(clusters, clusterID)
		}
	}
	sort.Strings(clusters)
	return clusters
}

func (o *Orchestrator) RecentEvents(clusterID string, limit int) []*models.Event {
	return o.auditLog.Recent(clusterID, limit)
}

func (o *Orchestrator) SubscribeEvents(types ...models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(types...)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func (o *Orchestrator) UnsubscribeEvents(ch <-chan *models.Event) {
	o.eventBus.Unsubscribe(ch)
}
