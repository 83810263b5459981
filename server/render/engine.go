// Package render drives a visualization engine instance through the
// mount → layout-stabilization → interactive-ready lifecycle for one
// topology at a time.
package render

import (
	"math"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/api/visjs"
	"github.com/meshadmin/topomapper/server/ops/config"
)

// Surface is the host drawing surface an engine binds to. Engines are
// only constructed against surfaces with positive dimensions.
type Surface interface {
	Size() (width, height int)
	// ForceDefaultSize is a best-effort request to give an unsized
	// surface usable dimensions. Implementations may ignore it.
	ForceDefaultSize(width, height int)
}

// Event is emitted by an engine during layout stabilization.
type Event interface {
	event()
}

// Progress reports layout iterations completed so far.
type Progress struct {
	Iterations int
	Total      int
}

// Stabilized signals layout convergence, either by reaching
// equilibrium or by exhausting the iteration budget.
type Stabilized struct{}

func (Progress) event()   {}
func (Stabilized) event() {}

type Options struct {
	Physics       config.Physics
	MaxIterations int
	ProgressEvery int
}

// Engine is one live visualization instance, scoped to exactly one
// topology. Destroy must be safe to call more than once.
type Engine interface {
	Events() <-chan Event
	Redraw()
	Fit()
	Positions() []api.NodePosition
	Destroy() error
}

type EngineFactory func(Surface, visjs.Topology, Options) (Engine, error)

const (
	defaultMaxIterations = 1000
	defaultProgressEvery = 50

	minScale = 0.2
	maxScale = 5.0
)

// forceEngine is the built-in engine: a force-directed physics
// simulation running in its own goroutine, reporting stabilization
// progress over its event channel.
type forceEngine struct {
	surface Surface
	sim     *simulation
	events  chan Event

	mu     sync.Mutex
	bounds rect
	view   viewport

	stop    chan struct{}
	stopped sync.Once
	done    chan struct{}
}

type rect struct {
	minX, minY, maxX, maxY float64
}

type viewport struct {
	Scale            float64
	OffsetX, OffsetY float64
}

func NewForceEngine(s Surface, t visjs.Topology, o Options) (Engine, error) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, errors.New("surface has no usable dimensions", j.MKV{"width": w, "height": h})
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = defaultProgressEvery
	}
	e := &forceEngine{
		surface: s,
		sim:     newSimulation(t, float64(w), float64(h), o.Physics),
		events:  make(chan Event, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go e.run(o)
	return e, nil
}

func (e *forceEngine) run(o Options) {
	defer close(e.done)
	for i := 1; i <= o.MaxIterations; i++ {
		select {
		case <-e.stop:
			return
		default:
		}
		moved := e.sim.step()
		if i%o.ProgressEvery == 0 {
			if !e.emit(Progress{Iterations: i, Total: o.MaxIterations}) {
				return
			}
		}
		if moved < stabilityThreshold {
			e.emit(Stabilized{})
			return
		}
	}
	// Iteration budget exhausted counts as done.
	e.emit(Stabilized{})
}

func (e *forceEngine) emit(ev Event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.stop:
		return false
	}
}

func (e *forceEngine) Events() <-chan Event {
	return e.events
}

// Redraw recomputes the layout bounding box.
func (e *forceEngine) Redraw() {
	b := e.sim.boundingBox()
	e.mu.Lock()
	e.bounds = b
	e.mu.Unlock()
}

// Fit adjusts the viewport so the current bounding box fills the
// surface.
func (e *forceEngine) Fit() {
	w, h := e.surface.Size()
	e.mu.Lock()
	defer e.mu.Unlock()

	bw := e.bounds.maxX - e.bounds.minX
	bh := e.bounds.maxY - e.bounds.minY
	if bw <= 0 || bh <= 0 || w <= 0 || h <= 0 {
		e.view = viewport{Scale: 1}
		return
	}
	scale := math.Min(float64(w)/bw, float64(h)/bh)
	scale = math.Max(minScale, math.Min(maxScale, scale))
	e.view = viewport{
		Scale:   scale,
		OffsetX: float64(w)/2 - scale*(e.bounds.minX+bw/2),
		OffsetY: float64(h)/2 - scale*(e.bounds.minY+bh/2),
	}
}

func (e *forceEngine) Positions() []api.NodePosition {
	return e.sim.positions()
}

// Destroy stops the simulation and waits for it to exit. Safe to call
// repeatedly.
func (e *forceEngine) Destroy() error {
	e.stopped.Do(func() {
		close(e.stop)
	})
	<-e.done
	return nil
}

var _ Engine = (*forceEngine)(nil)
