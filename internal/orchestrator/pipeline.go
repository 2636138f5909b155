package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/collector"
	"github.com/OldStager01/cku-autoscaler/internal/decision"
	"github.com/OldStager01/cku-autoscaler/internal/events"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/internal/scaler"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const (
	resultOK           = "ok"
	resultBusy         = "busy"
	resultStateError   = "state_error"
	resultResizeFailed = "resize_failed"
	resultCancelled    = "cancelled"
)

type PipelineConfig struct {
	Cluster      *models.Cluster
	PollInterval time.Duration
	CycleTimeout time.Duration
	// Interval is the telemetry lookback, e.g. "now-2h|h/now".
	Interval  string
	DryRun    bool
	Collector collector.Collector
	Scaler    scaler.Scaler
	Engine    *decision.Engine
	Publisher *events.Publisher
	Metrics   *metrics.Metrics
}

// Pipeline runs the poll cycle for one cluster on its own goroutine.
type Pipeline struct {
	config  PipelineConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	paused  bool

	lastState     *models.ClusterState
	lastDecision  *models.ScalingDecision
	lastCycleAt   *time.Time
	lastErr       error
	cycles        int64
	pendingTarget int

	mu sync.Mutex
	// cycleMu serializes cycles between the loop and RunOnce.
	cycleMu sync.Mutex
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.CycleTimeout == 0 || cfg.CycleTimeout > cfg.PollInterval {
		cfg.CycleTimeout = cfg.PollInterval
	}
	if cfg.Interval == "" {
		cfg.Interval = "now-2h|h/now"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pipeline) ClusterID() string {
	return p.config.Cluster.ID
}

func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.ctx.Err() != nil {
		return fmt.Errorf("pipeline for cluster %s was stopped", p.ClusterID())
	}

	p.running = true
	p.wg.Add(1)
	go p.run()

	logger.WithCluster(p.ClusterID()).Infof(
		"Pipeline started (poll=%s, dry_run=%v)", p.config.PollInterval, p.config.DryRun,
	)
	return nil
}

// Stop cancels any in-flight cycle and waits for the loop to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.cancel()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	logger.WithCluster(p.ClusterID()).Info("Pipeline stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Pause keeps the loop alive but skips cycles until Resume.
func (p *Pipeline) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	logger.WithCluster(p.ClusterID()).Info("Pipeline paused")
}

func (p *Pipeline) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	logger.WithCluster(p.ClusterID()).Info("Pipeline resumed")
}

func (p *Pipeline) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Pipeline) Snapshot() models.ClusterSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	cluster := *p.config.Cluster
	switch {
	case p.paused:
		cluster.Status = models.ClusterStatusPaused
	case p.lastErr != nil:
		cluster.Status = models.ClusterStatusError
	default:
		cluster.Status = models.ClusterStatusActive
	}

	snap := models.ClusterSnapshot{
		Cluster:      cluster,
		State:        p.lastState,
		LastDecision: p.lastDecision,
		LastCycleAt:  p.lastCycleAt,
		Cycles:       p.cycles,
		DryRun:       p.config.DryRun,
	}
	if p.lastErr != nil {
		snap.LastError = p.lastErr.Error()
	}
	return snap
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-timer.C:
		}

		if p.IsPaused() {
			logger.WithCluster(p.ClusterID()).Debug("Cycle skipped: pipeline paused")
		} else {
			_, _ = p.RunOnce(p.ctx)
		}

		timer.Reset(p.config.PollInterval)
	}
}

// RunOnce executes a single cycle regardless of the pause flag. The returned
// decision is nil when the cluster state could not be read.
func (p *Pipeline) RunOnce(ctx context.Context) (*models.ScalingDecision, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.config.CycleTimeout)
	defer cancel()
	ctx = logger.WithCycleID(ctx, models.NewUUID())

	start := time.Now()
	d, result, err := p.runCycle(ctx)
	p.config.Metrics.ObserveCycle(p.ClusterID(), result, time.Since(start))

	p.mu.Lock()
	p.cycles++
	now := time.Now()
	p.lastCycleAt = &now
	p.lastErr = err
	if d != nil {
		p.lastDecision = d
	}
	p.mu.Unlock()

	return d, err
}

func (p *Pipeline) runCycle(ctx context.Context) (*models.ScalingDecision, string, error) {
	clusterID := p.ClusterID()
	log := logger.WithClusterCtx(ctx, clusterID)
	pub := p.config.Publisher.WithTraceID(logger.CycleIDFromContext(ctx))

	state, err := p.config.Scaler.GetClusterState(ctx, clusterID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, resultCancelled, err
		}
		log.Errorf("Failed to get cluster state: %v", err)
		pub.Error(clusterID, "Failed to get cluster state", err)
		return nil, resultStateError, err
	}

	p.recordState(state, pub)
	pub.CycleStarted(clusterID, state)

	if decision.IsBusy(state) {
		d := p.config.Engine.Decide(state, nil)
		d.Timestamp = time.Now()
		pub.CycleSkipped(clusterID, d.Reason, state)
		p.config.Metrics.ObserveDecision(d)
		return d, resultBusy, nil
	}

	series, err := p.readSeries(ctx, pub)
	if err != nil {
		return nil, resultCancelled, err
	}

	d := p.config.Engine.Decide(state, series)
	d.Timestamp = time.Now()

	for _, eval := range d.Evaluations {
		pub.MetricEvaluated(clusterID, eval)
	}
	pub.DecisionMade(clusterID, d)
	p.config.Metrics.ObserveDecision(d)

	if !d.ShouldExecute() {
		return d, resultOK, nil
	}

	if err := p.execute(ctx, d, pub); err != nil {
		return d, resultResizeFailed, err
	}
	return d, resultOK, nil
}

// readSeries fetches every configured metric. A failed metric is left out of
// the map so the engine treats it as unavailable.
func (p *Pipeline) readSeries(ctx context.Context, pub *events.Publisher) (map[models.MetricKind][]models.MetricSample, error) {
	clusterID := p.ClusterID()
	engineCfg := p.config.Engine.Config()
	series := make(map[models.MetricKind][]models.MetricSample, len(engineCfg.Metrics))

	for _, kind := range engineCfg.Metrics {
		samples, err := p.config.Collector.ReadSeries(ctx, collector.SeriesQuery{
			ClusterID: clusterID,
			Kind:      kind,
			Bucket:    engineCfg.Bucket,
			Interval:  p.config.Interval,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.WithClusterCtx(ctx, clusterID).WithField("metric", kind).
				Warnf("Metric unavailable, treating as neutral: %v", err)
			pub.MetricUnavailable(clusterID, kind, err)
			continue
		}
		series[kind] = samples
	}
	return series, nil
}

func (p *Pipeline) execute(ctx context.Context, d *models.ScalingDecision, pub *events.Publisher) error {
	clusterID := p.ClusterID()
	log := logger.WithClusterCtx(ctx, clusterID)

	if p.config.DryRun {
		record := models.NewResizeRecord(d, models.ResizeSkipped)
		log.Infof("Dry run: would resize %d -> %d CKU (reason: %s)", d.CurrentCapacity, d.TargetCapacity, d.Reason)
		pub.ResizeRequested(clusterID, record)
		p.config.Metrics.IncResize(clusterID, models.ResizeSkipped)
		return nil
	}

	if err := p.config.Scaler.Resize(ctx, clusterID, d.TargetCapacity); err != nil {
		record := models.NewResizeRecord(d, models.ResizeFailed)
		record.Error = err.Error()
		log.Errorf("Resize %d -> %d CKU failed: %v", d.CurrentCapacity, d.TargetCapacity, err)
		pub.ResizeFailed(clusterID, record)
		p.config.Metrics.IncResize(clusterID, models.ResizeFailed)
		return err
	}

	p.mu.Lock()
	p.pendingTarget = d.TargetCapacity
	p.mu.Unlock()

	log.Infof("Resize requested: %s %d -> %d CKU", d.Action, d.CurrentCapacity, d.TargetCapacity)
	pub.ResizeRequested(clusterID, models.NewResizeRecord(d, models.ResizeRequested))
	p.config.Metrics.IncResize(clusterID, models.ResizeRequested)
	return nil
}

// recordState stores the latest state and reports a resize this pipeline
// requested once the provider has applied it.
func (p *Pipeline) recordState(state *models.ClusterState, pub *events.Publisher) {
	p.config.Metrics.SetClusterState(state)

	p.mu.Lock()
	p.lastState = state
	var completed bool
	if p.pendingTarget != 0 && !decision.IsBusy(state) {
		completed = state.CurrentCapacity == p.pendingTarget
		p.pendingTarget = 0
	}
	p.mu.Unlock()

	if completed {
		logger.WithCluster(state.ClusterID).Infof("Resize complete at %d CKU", state.CurrentCapacity)
		pub.ResizeComplete(state.ClusterID, state.CurrentCapacity)
		p.config.Metrics.IncResize(state.ClusterID, models.ResizeComplete)
	}
}
