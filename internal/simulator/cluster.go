package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/limits"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const (
	PhaseProvisioned  = "PROVISIONED"
	PhaseProvisioning = "PROVISIONING"
)

var (
	ErrClusterBusy = errors.New("cluster resize already in progress")
	ErrInvalidCKU  = errors.New("cku must be at least 1")
)

// defaultKindWeights scales demand per metric so traffic is dominated by
// ingress, as on a typical producer-heavy cluster.
var defaultKindWeights = map[models.MetricKind]float64{
	models.MetricReceivedBytes:   1.0,
	models.MetricSentBytes:       0.6,
	models.MetricRequestCount:    0.8,
	models.MetricConnectionCount: 0.3,
}

type ClusterSimConfig struct {
	Environment string
	CKU         int
	// BaseDemand is the load in CKU-equivalents before the pattern is applied.
	BaseDemand float64
	// Variance is the relative jitter applied to each sample, e.g. 0.05.
	Variance      float64
	ProvisionTime time.Duration
	Pattern       Pattern
	Now           func() time.Time
}

type Spike struct {
	TargetDemand   float64
	StartTime      time.Time
	Duration       time.Duration
	RampUp         time.Duration
	OriginalDemand float64
}

type ClusterSim struct {
	id            string
	environment   string
	current       int
	target        int
	readyAt       time.Time
	baseDemand    float64
	variance      float64
	provisionTime time.Duration
	pattern       Pattern
	spike         *Spike
	now           func() time.Time
	mu            sync.RWMutex
}

// ClusterView is a point-in-time copy of a simulated cluster's capacity.
type ClusterView struct {
	ID          string
	Environment string
	Current     int
	Target      int
	Phase       string
}

func NewClusterSim(id string, cfg ClusterSimConfig) *ClusterSim {
	if cfg.CKU < 1 {
		cfg.CKU = 1
	}
	if cfg.Pattern == nil {
		cfg.Pattern = PatternSteady
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &ClusterSim{
		id:            id,
		environment:   cfg.Environment,
		current:       cfg.CKU,
		target:        cfg.CKU,
		baseDemand:    cfg.BaseDemand,
		variance:      cfg.Variance,
		provisionTime: cfg.ProvisionTime,
		pattern:       cfg.Pattern,
		now:           cfg.Now,
	}
}

func (c *ClusterSim) ID() string {
	return c.id
}

// settle applies a pending resize once its provisioning delay has passed.
// Caller holds mu.
func (c *ClusterSim) settle() {
	if c.current != c.target && !c.now().Before(c.readyAt) {
		c.current = c.target
	}
}

func (c *ClusterSim) View() ClusterView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()

	phase := PhaseProvisioned
	if c.current != c.target {
		phase = PhaseProvisioning
	}
	return ClusterView{
		ID:          c.id,
		Environment: c.environment,
		Current:     c.current,
		Target:      c.target,
		Phase:       phase,
	}
}

// Resize sets a new target CKU count. It fails while a previous resize is
// still provisioning. Requesting the current size is a no-op.
func (c *ClusterSim) Resize(target int) error {
	if target < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCKU, target)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()

	if c.current != c.target {
		return ErrClusterBusy
	}
	if target == c.current {
		return nil
	}

	c.target = target
	c.readyAt = c.now().Add(c.provisionTime)
	c.settle()
	return nil
}

// demand must be called with mu held.
func (c *ClusterSim) demand(at time.Time) float64 {
	base := c.pattern.Apply(c.baseDemand, at)

	if s := c.spike; s != nil {
		elapsed := at.Sub(s.StartTime)
		switch {
		case elapsed < 0 || elapsed > s.Duration:
		case elapsed < s.RampUp:
			progress := float64(elapsed) / float64(s.RampUp)
			base = s.OriginalDemand + (s.TargetDemand-s.OriginalDemand)*progress
		default:
			base = s.TargetDemand
		}
	}

	return math.Max(base, 0)
}

func (c *ClusterSim) jitter(v float64) float64 {
	if c.variance <= 0 {
		return v
	}
	return math.Max(v*(1+(rand.Float64()*2-1)*c.variance), 0)
}

// Sample returns the aggregated value of one metric for the bucket starting at.
// Throughput kinds are totals over the bucket; cluster load is a 0..1 fraction
// of the capacity that was current at the time of the call.
func (c *ClusterSim) Sample(kind models.MetricKind, bucket models.TimeBucket, at time.Time) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()

	return c.sample(kind, bucket, at)
}

func (c *ClusterSim) sample(kind models.MetricKind, bucket models.TimeBucket, at time.Time) (float64, error) {
	fixed, err := limits.IsFixedPercentage(kind)
	if err != nil {
		return 0, err
	}

	d := c.demand(at)
	if fixed {
		return math.Min(c.jitter(d/float64(c.current)), 1.0), nil
	}

	ceiling, err := limits.EffectiveCeiling(kind, bucket)
	if err != nil {
		return 0, err
	}
	weight, ok := defaultKindWeights[kind]
	if !ok {
		weight = 1.0
	}
	return math.Round(c.jitter(d * weight * float64(ceiling))), nil
}

// Series returns one sample per complete bucket in [start, end).
func (c *ClusterSim) Series(kind models.MetricKind, bucket models.TimeBucket, start, end time.Time) ([]models.MetricSample, error) {
	seconds, err := limits.BucketSeconds(bucket)
	if err != nil {
		return nil, err
	}
	step := time.Duration(seconds) * time.Second

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()

	t := start.Truncate(step)
	if t.Before(start) {
		t = t.Add(step)
	}

	var out []models.MetricSample
	for ; !t.Add(step).After(end); t = t.Add(step) {
		v, err := c.sample(kind, bucket, t)
		if err != nil {
			return nil, err
		}
		out = append(out, models.MetricSample{Timestamp: t.UTC(), Value: v})
	}
	return out, nil
}

func (c *ClusterSim) SetBaseDemand(demand float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseDemand = demand
}

func (c *ClusterSim) SetVariance(variance float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variance = variance
}

func (c *ClusterSim) SetPattern(pattern Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pattern = pattern
}

func (c *ClusterSim) PatternName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pattern.Name()
}

func (c *ClusterSim) InjectSpike(targetDemand float64, duration, rampUp time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spike = &Spike{
		TargetDemand:   targetDemand,
		StartTime:      c.now(),
		Duration:       duration,
		RampUp:         rampUp,
		OriginalDemand: c.baseDemand,
	}
}

func (c *ClusterSim) Status() map[string]interface{} {
	view := c.View()

	c.mu.RLock()
	defer c.mu.RUnlock()

	spikeInfo := map[string]interface{}{"active": false}
	if c.spike != nil {
		remaining := c.spike.Duration - c.now().Sub(c.spike.StartTime)
		if remaining > 0 {
			spikeInfo = map[string]interface{}{
				"active":        true,
				"target_demand": c.spike.TargetDemand,
				"remaining":     remaining.String(),
			}
		}
	}

	return map[string]interface{}{
		"id":          c.id,
		"environment": c.environment,
		"cku":         view.Current,
		"target_cku":  view.Target,
		"phase":       view.Phase,
		"base_demand": c.baseDemand,
		"demand":      c.demand(c.now()),
		"variance":    c.variance,
		"pattern":     c.pattern.Name(),
		"spike":       spikeInfo,
	}
}
