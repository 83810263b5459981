package visjs

type Shape string

const (
	ShapeBox      Shape = "box"
	ShapeDot      Shape = "dot"
	ShapeDiamond  Shape = "diamond"
	ShapeTriangle Shape = "triangle"
	ShapeStar     Shape = "star"
	ShapeHexagon  Shape = "hexagon"
	ShapeText     Shape = "text"
)

type SmoothType string

const (
	SmoothContinuous SmoothType = "continuous"
	SmoothDynamic    SmoothType = "dynamic"
	SmoothCubic      SmoothType = "cubicBezier"
)

type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Shape Shape  `json:"shape"`
	Color string `json:"color,omitempty"`
	Group string `json:"group,omitempty"`
	Title string `json:"title,omitempty"`
}

type EdgeColor struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

type Smooth struct {
	Type      SmoothType `json:"type"`
	Roundness float64    `json:"roundness"`
}

type Edge struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Arrows  string    `json:"arrows,omitempty"`
	Physics bool      `json:"physics"`
	Color   EdgeColor `json:"color"`
	Smooth  Smooth    `json:"smooth"`
	Dashes  bool      `json:"dashes,omitempty"`
	Title   string    `json:"title,omitempty"`
}

// Topology is the document handed to the renderer. It is never
// mutated after construction.
type Topology struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (t Topology) Empty() bool {
	return len(t.Nodes) == 0 && len(t.Edges) == 0
}

// HasNode reports whether id exists in the node set. Edges must only
// reference ids for which this returns true.
func (t Topology) HasNode(id string) bool {
	for _, n := range t.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
