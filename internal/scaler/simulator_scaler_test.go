package scaler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSimulatorScaler_ResizeLifecycle(t *testing.T) {
	clock := &testClock{now: time.Unix(1700000000, 0)}
	completed := make(chan int, 1)
	s := NewSimulatorScaler(SimulatorConfig{
		ProvisionTime:    time.Minute,
		Now:              clock.Now,
		OnResizeComplete: func(_ string, capacity int) { completed <- capacity },
	})
	s.InitializeCluster("lkc-sim", 2)
	ctx := context.Background()

	require.NoError(t, s.Resize(ctx, "lkc-sim", 3))

	state, err := s.GetClusterState(ctx, "lkc-sim")
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentCapacity)
	assert.Equal(t, 3, state.TargetCapacity)
	assert.Equal(t, "PROVISIONING", state.Phase)

	assert.ErrorIs(t, s.Resize(ctx, "lkc-sim", 4), ErrClusterBusy)

	clock.Advance(time.Minute)
	state, err = s.GetClusterState(ctx, "lkc-sim")
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentCapacity)
	assert.Equal(t, 3, state.TargetCapacity)
	assert.Equal(t, "PROVISIONED", state.Phase)

	select {
	case capacity := <-completed:
		assert.Equal(t, 3, capacity)
	case <-time.After(time.Second):
		t.Fatal("expected resize completion callback")
	}
	assert.Equal(t, []int{3}, s.Resizes())
}

func TestSimulatorScaler_ImmediateResize(t *testing.T) {
	s := NewSimulatorScaler(SimulatorConfig{})
	s.InitializeCluster("lkc-sim", 2)

	require.NoError(t, s.Resize(context.Background(), "lkc-sim", 1))
	state, err := s.GetClusterState(context.Background(), "lkc-sim")
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentCapacity)
}

func TestSimulatorScaler_Errors(t *testing.T) {
	s := NewSimulatorScaler(SimulatorConfig{})
	ctx := context.Background()

	_, err := s.GetClusterState(ctx, "missing")
	assert.ErrorIs(t, err, ErrClusterNotFound)
	assert.ErrorIs(t, s.Resize(ctx, "missing", 2), ErrClusterNotFound)
	assert.ErrorIs(t, s.Resize(ctx, "missing", 0), ErrInvalidTarget)
}
