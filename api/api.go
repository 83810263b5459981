package api

import (
	"time"

	"github.com/meshadmin/topomapper/api/visjs"
)

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// TopologyRecord is one completed extraction, as stored in the
// registry and returned by the topology endpoints.
type TopologyRecord struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Format    Format         `json:"format"`
	CreatedAt time.Time      `json:"created_at"`
	Topology  visjs.Topology `json:"topology"`
}

type ListTopologies struct {
	Topologies []TopologyRecord `json:"topologies"`
}

// Error is the payload returned for failed uploads.
type Error struct {
	Error string `json:"error"`
}

// RenderStatus is the observable state of a rendering controller.
type RenderStatus struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Error  string `json:"error,omitempty"`
}

type NodePosition struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Stream frame types exchanged on the viewer websocket.
const (
	FrameSurface   = "surface"
	FrameTopology  = "topology"
	FrameStatus    = "status"
	FramePositions = "positions"
)

// ViewerFrame is sent by the browser: surface dimensions on connect
// and on every window resize.
type ViewerFrame struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ServerFrame is pushed to the browser. Exactly one of the payload
// fields is set, selected by Type.
type ServerFrame struct {
	Type      string          `json:"type"`
	Topology  *visjs.Topology `json:"topology,omitempty"`
	Status    *RenderStatus   `json:"status,omitempty"`
	Positions []NodePosition  `json:"positions,omitempty"`
}
