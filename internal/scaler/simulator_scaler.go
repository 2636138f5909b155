package scaler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

type SimulatorConfig struct {
	// ProvisionTime is how long a resize takes before current catches up with target.
	ProvisionTime    time.Duration
	OnResizeComplete func(clusterID string, capacity int)
	Now              func() time.Time
}

type simulatedCluster struct {
	current int
	target  int
	readyAt time.Time
}

// SimulatorScaler keeps cluster capacity in memory and applies resizes after
// a fixed provisioning delay.
type SimulatorScaler struct {
	clusters map[string]*simulatedCluster
	cfg      SimulatorConfig
	resizes  []int
	mu       sync.Mutex
}

func NewSimulatorScaler(cfg SimulatorConfig) *SimulatorScaler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SimulatorScaler{
		clusters: make(map[string]*simulatedCluster),
		cfg:      cfg,
	}
}

// InitializeCluster registers a steady cluster with the given CKU count.
func (s *SimulatorScaler) InitializeCluster(clusterID string, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clusters[clusterID] = &simulatedCluster{current: capacity, target: capacity}
	logger.WithCluster(clusterID).Infof("Initialized simulated cluster with %d CKU", capacity)
}

func (s *SimulatorScaler) GetClusterState(ctx context.Context, clusterID string) (*models.ClusterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[clusterID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	}
	s.settle(clusterID, c)

	phase := "PROVISIONED"
	if c.current != c.target {
		phase = "PROVISIONING"
	}
	return &models.ClusterState{
		ClusterID:       clusterID,
		CurrentCapacity: c.current,
		TargetCapacity:  c.target,
		Phase:           phase,
		ObservedAt:      s.cfg.Now(),
	}, nil
}

func (s *SimulatorScaler) Resize(ctx context.Context, clusterID string, targetCapacity int) error {
	if targetCapacity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTarget, targetCapacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[clusterID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	}
	s.settle(clusterID, c)
	if c.current != c.target {
		return fmt.Errorf("%w: %s", ErrClusterBusy, clusterID)
	}

	c.target = targetCapacity
	c.readyAt = s.cfg.Now().Add(s.cfg.ProvisionTime)
	s.resizes = append(s.resizes, targetCapacity)
	logger.WithCluster(clusterID).Infof("Simulated resize %d -> %d CKU", c.current, targetCapacity)

	s.settle(clusterID, c)
	return nil
}

// settle must be called with mu held.
func (s *SimulatorScaler) settle(clusterID string, c *simulatedCluster) {
	if c.current == c.target || s.cfg.Now().Before(c.readyAt) {
		return
	}
	c.current = c.target
	if s.cfg.OnResizeComplete != nil {
		go s.cfg.OnResizeComplete(clusterID, c.current)
	}
}

// Resizes returns every target requested so far.
func (s *SimulatorScaler) Resizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.resizes))
	copy(out, s.resizes)
	return out
}

func (s *SimulatorScaler) Close() error {
	return nil
}
