package render

import (
	"math"
	"math/rand"
	"sync"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/api/visjs"
	"github.com/meshadmin/topomapper/server/ops/config"
)

// stabilityThreshold is the per-step maximum displacement below which
// the layout counts as converged.
const stabilityThreshold = 0.05

type simNode struct {
	id     string
	x, y   float64
	vx, vy float64
}

// simulation is a plain spring-repulsion layout over the topology's
// nodes. Edge endpoints always reference existing nodes; anything
// else is a builder defect and is skipped here.
type simulation struct {
	mu     sync.Mutex
	nodes  []simNode
	edges  [][2]int
	width  float64
	height float64
	p      config.Physics
}

func newSimulation(t visjs.Topology, width, height float64, p config.Physics) *simulation {
	if p.Repulsion == 0 && p.SpringLength == 0 && p.SpringStiffness == 0 {
		p = config.DefaultConfig().Physics
	}
	s := &simulation{width: width, height: height, p: p}

	// Seeded placement keeps re-renders of the same topology
	// deterministic.
	rng := rand.New(rand.NewSource(int64(len(t.Nodes))*7919 + 1))
	index := make(map[string]int, len(t.Nodes))
	for _, n := range t.Nodes {
		index[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, simNode{
			id: n.ID,
			x:  rng.Float64() * width,
			y:  rng.Float64() * height,
		})
	}
	for _, e := range t.Edges {
		a, okA := index[e.From]
		b, okB := index[e.To]
		if !okA || !okB || a == b {
			continue
		}
		s.edges = append(s.edges, [2]int{a, b})
	}
	return s
}

// step advances the simulation one tick and returns the maximum node
// displacement, the convergence signal.
func (s *simulation) step() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.nodes)
	if n == 0 {
		return 0
	}
	fx := make([]float64, n)
	fy := make([]float64, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := s.nodes[i].x - s.nodes[j].x
			dy := s.nodes[i].y - s.nodes[j].y
			d2 := dx*dx + dy*dy + 0.01
			d := math.Sqrt(d2)
			f := s.p.Repulsion / d2
			fx[i] += f * dx / d
			fy[i] += f * dy / d
			fx[j] -= f * dx / d
			fy[j] -= f * dy / d
		}
	}

	for _, e := range s.edges {
		a, b := e[0], e[1]
		dx := s.nodes[b].x - s.nodes[a].x
		dy := s.nodes[b].y - s.nodes[a].y
		d := math.Sqrt(dx*dx+dy*dy) + 0.01
		f := s.p.SpringStiffness * (d - s.p.SpringLength)
		fx[a] += f * dx / d
		fy[a] += f * dy / d
		fx[b] -= f * dx / d
		fy[b] -= f * dy / d
	}

	cx, cy := s.width/2, s.height/2
	var maxDisp float64
	for i := range s.nodes {
		fx[i] += (cx - s.nodes[i].x) * s.p.Gravity
		fy[i] += (cy - s.nodes[i].y) * s.p.Gravity

		s.nodes[i].vx = (s.nodes[i].vx + fx[i]) * s.p.Damping
		s.nodes[i].vy = (s.nodes[i].vy + fy[i]) * s.p.Damping
		s.nodes[i].x += s.nodes[i].vx
		s.nodes[i].y += s.nodes[i].vy

		disp := math.Abs(s.nodes[i].vx) + math.Abs(s.nodes[i].vy)
		if disp > maxDisp {
			maxDisp = disp
		}
	}
	return maxDisp
}

func (s *simulation) boundingBox() rect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.nodes) == 0 {
		return rect{}
	}
	b := rect{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
	for _, n := range s.nodes {
		b.minX = math.Min(b.minX, n.x)
		b.minY = math.Min(b.minY, n.y)
		b.maxX = math.Max(b.maxX, n.x)
		b.maxY = math.Max(b.maxY, n.y)
	}
	return b
}

func (s *simulation) positions() []api.NodePosition {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]api.NodePosition, 0, len(s.nodes))
	for _, n := range s.nodes {
		ret = append(ret, api.NodePosition{ID: n.id, X: n.x, Y: n.y})
	}
	return ret
}
