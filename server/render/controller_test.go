package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/api/visjs"
	"github.com/meshadmin/topomapper/server/ops/config"
)

type fakeSurface struct {
	mu         sync.Mutex
	width      int
	height     int
	honorForce bool
	forced     int
}

func (s *fakeSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *fakeSurface) ForceDefaultSize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced++
	if s.honorForce {
		s.width, s.height = w, h
	}
}

func (s *fakeSurface) forceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forced
}

type fakeEngine struct {
	events chan Event

	mu        sync.Mutex
	redraws   int
	fits      int
	destroyed bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan Event, 4)}
}

func (e *fakeEngine) Events() <-chan Event { return e.events }

func (e *fakeEngine) Redraw() {
	e.mu.Lock()
	e.redraws++
	e.mu.Unlock()
}

func (e *fakeEngine) Fit() {
	e.mu.Lock()
	e.fits++
	e.mu.Unlock()
}

func (e *fakeEngine) Positions() []api.NodePosition {
	return []api.NodePosition{{ID: "a", X: 1, Y: 2}}
}

func (e *fakeEngine) Destroy() error {
	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) isDestroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// recorder captures construction and destruction order across engine
// instances.
type recorder struct {
	mu      sync.Mutex
	history []string
	engines []*fakeEngine
}

func (r *recorder) factory() EngineFactory {
	return func(s Surface, t visjs.Topology, o Options) (Engine, error) {
		w, h := s.Size()
		if w <= 0 || h <= 0 {
			return nil, errors.New("no dimensions")
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		eng := newFakeEngine()
		r.history = append(r.history, "create")
		r.engines = append(r.engines, eng)
		return eng, nil
	}
}

func (r *recorder) created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

func (r *recorder) engine(i int) *fakeEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engines[i]
}

func testRenderConfig() config.Render {
	return config.Render{
		ContainerRetries:        3,
		RetryDelaysMS:           []int{1, 1, 1},
		PostStabilizeDelayMS:    1,
		DefaultWidth:            800,
		DefaultHeight:           600,
		StabilizationIterations: 100,
	}
}

func testTopology() visjs.Topology {
	return visjs.Topology{
		Nodes: []visjs.Node{{ID: "a"}, {ID: "b"}},
		Edges: []visjs.Edge{{From: "a", To: "b"}},
	}
}

func startController(t *testing.T, surface Surface, factory EngineFactory, conf Config) *Controller {
	t.Helper()
	if conf.Render.ContainerRetries == 0 {
		conf.Render = testRenderConfig()
	}
	ctrl := NewController(surface, factory, conf)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = ctrl.Run(ctx)
	}()
	return ctrl
}

func TestControllerContainerNeverBinds(t *testing.T) {
	surface := &fakeSurface{} // stays 0x0, ignores forcing
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	ctrl.SetTopology(testTopology())

	require.Eventually(t, func() bool {
		return ctrl.State() == StateError
	}, time.Second, time.Millisecond)

	// Every scheduled attempt forced default dimensions first, and no
	// engine was ever constructed against the unsized surface.
	assert.Equal(t, 3, surface.forceCalls())
	assert.Zero(t, rec.created())
	assert.Contains(t, ctrl.Status().Error, "container")
}

func TestControllerBindsOnForcedSize(t *testing.T) {
	surface := &fakeSurface{honorForce: true}
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	ctrl.SetTopology(testTopology())

	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, rec.created())

	w, h := surface.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestControllerReadyAfterStabilized(t *testing.T) {
	surface := &fakeSurface{width: 640, height: 480}
	rec := &recorder{}

	var mu sync.Mutex
	var positions [][]api.NodePosition
	ctrl := startController(t, surface, rec.factory(), Config{
		OnPositions: func(p []api.NodePosition) {
			mu.Lock()
			positions = append(positions, p)
			mu.Unlock()
		},
	})

	ctrl.SetTopology(testTopology())

	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, rec.created())
	eng := rec.engine(0)

	eng.events <- Progress{Iterations: 50, Total: 100}
	require.Eventually(t, func() bool {
		return ctrl.Status().Status == "Stabilizing layout... 50/100"
	}, time.Second, time.Millisecond)

	eng.events <- Stabilized{}
	require.Eventually(t, func() bool {
		return ctrl.State() == StateReady
	}, time.Second, time.Millisecond)

	assert.True(t, ctrl.Status().Ready)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, positions, 1)
	assert.Equal(t, []api.NodePosition{{ID: "a", X: 1, Y: 2}}, positions[0])
}

func TestControllerDestroyBeforeCreate(t *testing.T) {
	surface := &fakeSurface{width: 640, height: 480}
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)
	first := rec.engine(0)

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return rec.created() == 2
	}, time.Second, time.Millisecond)

	// The first instance was destroyed before the second existed; the
	// Run goroutine sequences retire() ahead of construction.
	assert.True(t, first.isDestroyed())
	assert.False(t, rec.engine(1).isDestroyed())
}

func TestControllerEmptyTopologyGoesIdle(t *testing.T) {
	surface := &fakeSurface{width: 640, height: 480}
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)
	first := rec.engine(0)

	ctrl.SetTopology(visjs.Topology{})
	require.Eventually(t, func() bool {
		return ctrl.State() == StateIdle
	}, time.Second, time.Millisecond)

	assert.True(t, first.isDestroyed())
	assert.Equal(t, 1, rec.created())
}

func TestControllerRecoversFromError(t *testing.T) {
	surface := &fakeSurface{}
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateError
	}, time.Second, time.Millisecond)

	// A later topology with a now-sized surface starts a fresh cycle.
	surface.mu.Lock()
	surface.width, surface.height = 640, 480
	surface.mu.Unlock()

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, rec.created())
}

func TestControllerResizeOnlyWhenReady(t *testing.T) {
	surface := &fakeSurface{width: 640, height: 480}
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)
	eng := rec.engine(0)

	// Resize while stabilizing is ignored.
	ctrl.Resize()
	time.Sleep(10 * time.Millisecond)
	eng.mu.Lock()
	fitsBefore := eng.fits
	eng.mu.Unlock()

	eng.events <- Stabilized{}
	require.Eventually(t, func() bool {
		return ctrl.State() == StateReady
	}, time.Second, time.Millisecond)

	ctrl.Resize()
	require.Eventually(t, func() bool {
		eng.mu.Lock()
		defer eng.mu.Unlock()
		return eng.fits > fitsBefore+1
	}, time.Second, time.Millisecond)
}

func TestControllerIgnoresStaleTimers(t *testing.T) {
	surface := &fakeSurface{width: 640, height: 480}
	rec := &recorder{}
	ctrl := startController(t, surface, rec.factory(), Config{})

	// Processing a topology retires the previous (empty) instance and
	// bumps the generation, so generation zero is now stale.
	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)

	stale := make(chan struct{}, 1)
	ctrl.timerCh <- timerEvent{gen: 0, fn: func() { stale <- struct{}{} }}

	// A current-generation event after it proves the stale one was
	// already drained and discarded, not still queued.
	current := make(chan struct{}, 1)
	ctrl.timerCh <- timerEvent{gen: 1, fn: func() { current <- struct{}{} }}

	select {
	case <-current:
	case <-time.After(time.Second):
		t.Fatal("expected current-generation timer to fire")
	}
	select {
	case <-stale:
		t.Fatal("stale timer callback ran after retire")
	default:
	}
}

func TestControllerTeardownOnCancel(t *testing.T) {
	surface := &fakeSurface{width: 640, height: 480}
	rec := &recorder{}
	ctrl := NewController(surface, rec.factory(), Config{Render: testRenderConfig()})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- ctrl.Run(ctx)
	}()

	ctrl.SetTopology(testTopology())
	require.Eventually(t, func() bool {
		return ctrl.State() == StateStabilizing
	}, time.Second, time.Millisecond)

	cancel()
	err := <-runDone
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateTornDown, ctrl.State())
	assert.True(t, rec.engine(0).isDestroyed())
}
