package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/api/visjs"
	"github.com/meshadmin/topomapper/server/ops/config"
)

var (
	// ErrContainerBinding means the host surface never reached usable
	// dimensions within the retry budget.
	ErrContainerBinding = errors.New("container never reached usable dimensions", j.C("ERR_7e15fd2c84a09b36"))

	// ErrEngineConstruction means the engine failed to initialize
	// against a bound surface.
	ErrEngineConstruction = errors.New("engine construction failed", j.C("ERR_2ba90cf671d3e548"))
)

type State int

const (
	StateIdle State = iota
	StateContainerWait
	StateInitializing
	StateStabilizing
	StateReady
	StateError
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateContainerWait:
		return "container-wait"
	case StateInitializing:
		return "initializing"
	case StateStabilizing:
		return "stabilizing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

type Config struct {
	Render  config.Render
	Physics config.Physics

	// OnStatus is invoked from the controller goroutine whenever the
	// observable status changes.
	OnStatus func(api.RenderStatus)
	// OnPositions is invoked with node positions after every
	// redraw+fit in the ready state.
	OnPositions func([]api.NodePosition)
}

type timerEvent struct {
	gen int
	fn  func()
}

// Controller owns the single engine-instance slot. All lifecycle
// state is mutated only by the Run goroutine; the mutex guards just
// the status snapshot read by Status and State.
type Controller struct {
	surface Surface
	factory EngineFactory
	conf    Config

	topoCh   chan visjs.Topology
	resizeCh chan struct{}
	timerCh  chan timerEvent
	done     chan struct{}

	mu     sync.Mutex
	state  State
	status api.RenderStatus

	// Owned by the Run goroutine.
	ctx            context.Context
	gen            int
	engine         Engine
	engineEvents   <-chan Event
	topo           visjs.Topology
	attempt        int
	timers         []*time.Timer
	stabilizeStart time.Time
}

func NewController(surface Surface, factory EngineFactory, conf Config) *Controller {
	if conf.Render.ContainerRetries == 0 && conf.Render.DefaultWidth == 0 {
		conf.Render = config.DefaultConfig().Render
	}
	return &Controller{
		surface:  surface,
		factory:  factory,
		conf:     conf,
		topoCh:   make(chan visjs.Topology, 1),
		resizeCh: make(chan struct{}, 1),
		timerCh:  make(chan timerEvent, 8),
		done:     make(chan struct{}),
		state:    StateIdle,
	}
}

// SetTopology hands the controller a new topology. Latest wins: an
// undelivered previous topology is replaced, never queued.
func (c *Controller) SetTopology(t visjs.Topology) {
	for {
		select {
		case c.topoCh <- t:
			return
		default:
		}
		select {
		case <-c.topoCh:
		default:
		}
	}
}

// Resize signals that the surface dimensions changed.
func (c *Controller) Resize() {
	select {
	case c.resizeCh <- struct{}{}:
	default:
	}
}

func (c *Controller) Status() api.RenderStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run is the controller's event loop. It blocks until ctx is
// cancelled, at which point the controller is torn down and no
// further topologies are accepted.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer c.teardown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-c.topoCh:
			c.onTopology(t)
		case <-c.resizeCh:
			c.onResize()
		case te := <-c.timerCh:
			// Liveness guard: timers scheduled for a previous engine
			// instance are no-ops.
			if te.gen == c.gen {
				te.fn()
			}
		case ev, ok := <-c.engineEvents:
			if !ok {
				c.engineEvents = nil
				continue
			}
			c.onEngineEvent(ev)
		}
	}
}

// onTopology replaces the live instance. Destruction of the old
// engine is strictly ordered before any new construction.
func (c *Controller) onTopology(t visjs.Topology) {
	c.retire()
	c.topo = t
	if t.Empty() {
		c.setState(StateIdle, api.RenderStatus{})
		return
	}
	log.Info(c.ctx, "topology received", j.MKV{
		"nodes": len(t.Nodes), "edges": len(t.Edges),
	})
	c.attempt = 0
	c.setState(StateContainerWait, api.RenderStatus{Status: "Waiting for container..."})
	c.containerAttempt()
}

func (c *Controller) containerAttempt() {
	w, h := c.surface.Size()
	if w > 0 && h > 0 {
		c.initialize()
		return
	}
	if c.attempt >= c.conf.Render.ContainerRetries {
		containerFailures.Inc()
		c.enterError(errors.Wrap(ErrContainerBinding, "", j.KV("attempts", c.attempt)))
		return
	}
	c.surface.ForceDefaultSize(c.conf.Render.DefaultWidth, c.conf.Render.DefaultHeight)
	delay := c.conf.Render.RetryDelay(c.attempt)
	c.attempt++
	log.Info(c.ctx, "container not ready, retrying", j.MKV{
		"attempt": c.attempt, "delay": delay,
	})
	c.schedule(delay, c.containerAttempt)
}

func (c *Controller) initialize() {
	c.setState(StateInitializing, api.RenderStatus{Status: "Initializing visualization engine..."})

	eng, err := c.factory(c.surface, c.topo, Options{
		Physics:       c.conf.Physics,
		MaxIterations: c.conf.Render.StabilizationIterations,
	})
	if err != nil {
		c.enterError(errors.Wrap(ErrEngineConstruction, err.Error()))
		return
	}
	enginesCreated.Inc()
	c.engine = eng
	c.engineEvents = eng.Events()
	c.stabilizeStart = time.Now()
	eng.Redraw()
	eng.Fit()
	c.setState(StateStabilizing, api.RenderStatus{Status: "Stabilizing layout..."})
}

func (c *Controller) onEngineEvent(ev Event) {
	switch ev := ev.(type) {
	case Progress:
		if c.state != StateStabilizing {
			return
		}
		c.setStatus(api.RenderStatus{
			Status: fmt.Sprintf("Stabilizing layout... %d/%d", ev.Iterations, ev.Total),
		})
	case Stabilized:
		if c.state != StateStabilizing {
			return
		}
		stabilizeSeconds.Observe(time.Since(c.stabilizeStart).Seconds())
		// One more deferred redraw+fit to correct for late layout
		// shift, then ready.
		c.schedule(c.conf.Render.PostStabilizeDelay(), c.finishStabilization)
	}
}

func (c *Controller) finishStabilization() {
	if c.engine == nil {
		return
	}
	c.engine.Redraw()
	c.engine.Fit()
	c.setState(StateReady, api.RenderStatus{Ready: true})
	c.emitPositions()
}

func (c *Controller) onResize() {
	if c.state != StateReady || c.engine == nil {
		return
	}
	c.engine.Redraw()
	c.engine.Fit()
	c.emitPositions()
}

func (c *Controller) emitPositions() {
	if c.conf.OnPositions == nil || c.engine == nil {
		return
	}
	c.conf.OnPositions(c.engine.Positions())
}

// enterError records a user-facing message and halts automatic
// retries. The controller stays able to accept a subsequent topology.
func (c *Controller) enterError(err error) {
	log.Error(c.ctx, err)
	c.retire()
	c.setState(StateError, api.RenderStatus{Error: err.Error()})
}

// retire cancels all pending timers for the current instance and
// destroys the engine, in that order. Safe when no engine exists.
func (c *Controller) retire() {
	c.gen++
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	c.destroyEngine()
}

// destroyEngine contains destruction failures: they are logged, never
// propagated.
func (c *Controller) destroyEngine() {
	if c.engine == nil {
		return
	}
	eng := c.engine
	c.engine = nil
	c.engineEvents = nil

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.New("engine destroy panicked", j.KV("panic", fmt.Sprint(r)))
			}
		}()
		return eng.Destroy()
	}()
	if err != nil {
		log.Error(c.ctx, errors.Wrap(err, "engine destroy"))
	}
}

func (c *Controller) teardown() {
	c.retire()
	c.setState(StateTornDown, api.RenderStatus{})
	close(c.done)
}

func (c *Controller) schedule(d time.Duration, fn func()) {
	gen := c.gen
	t := time.AfterFunc(d, func() {
		select {
		case c.timerCh <- timerEvent{gen: gen, fn: fn}:
		case <-c.done:
		}
	})
	c.timers = append(c.timers, t)
}

func (c *Controller) setState(s State, st api.RenderStatus) {
	c.mu.Lock()
	c.state = s
	c.status = st
	c.mu.Unlock()
	if c.conf.OnStatus != nil {
		c.conf.OnStatus(st)
	}
}

func (c *Controller) setStatus(st api.RenderStatus) {
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
	if c.conf.OnStatus != nil {
		c.conf.OnStatus(st)
	}
}
