package ops

import (
	"fmt"
	"strings"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/api/visjs"
	"github.com/meshadmin/topomapper/server/extract"
	"github.com/meshadmin/topomapper/server/ops/config"
)

const (
	deviceColor   = "#97C2FC"
	peerColor     = "#B0C4DE"
	sentinelColor = "#C0C0C0"
	inferredColor = "#848484"

	sentinelID = "no-interfaces"
)

// BuildTopology assembles one extractor's output into the final
// node/edge document. Interface node ids are synthesized as
// name_index, with the index being the interface's position within
// this extraction pass; each call must process exactly one file.
func BuildTopology(ext extract.Extraction, styles map[string]config.Style) visjs.Topology {
	t := visjs.Topology{Nodes: []visjs.Node{}, Edges: []visjs.Edge{}}
	seen := make(map[string]bool)

	// Text configurations without a hostname line yield no device
	// node; the structured formats fall back to "Unknown Device".
	deviceID := ""
	if ext.HostnameFound || ext.Format != api.FormatText {
		deviceID = ext.Hostname
		t.Nodes = append(t.Nodes, visjs.Node{
			ID:    deviceID,
			Label: ext.Hostname,
			Shape: visjs.ShapeBox,
			Color: deviceColor,
			Group: "device",
			Title: fmt.Sprintf("%s\nformat: %s\ninterfaces: %d", ext.Hostname, ext.Format, len(ext.Interfaces)),
		})
		seen[deviceID] = true
	}

	for i, iface := range ext.Interfaces {
		cls := extract.Classify(iface.Name, iface.Type, iface.Role)
		color, shape := cls.Color, cls.Shape
		if o, ok := styles[string(cls.Category)]; ok {
			if o.Color != "" {
				color = o.Color
			}
			if o.Shape != "" {
				shape = visjs.Shape(o.Shape)
			}
		}

		ifaceID := fmt.Sprintf("%s_%d", iface.Name, i)
		t.Nodes = append(t.Nodes, visjs.Node{
			ID:    ifaceID,
			Label: iface.Name,
			Shape: shape,
			Color: color,
			Group: string(cls.Category),
			Title: interfaceTitle(iface, cls.Category),
		})
		seen[ifaceID] = true

		if deviceID != "" {
			t.Edges = append(t.Edges, visjs.Edge{
				From:    deviceID,
				To:      ifaceID,
				Arrows:  "to",
				Physics: true,
				Color:   visjs.EdgeColor{Color: color, Opacity: 0.8},
				Smooth:  visjs.Smooth{Type: visjs.SmoothContinuous, Roundness: 0.5},
			})
		}

		for _, peer := range iface.Peers {
			if peer == "" || peer == ext.Hostname {
				continue
			}
			if !seen[peer] {
				t.Nodes = append(t.Nodes, visjs.Node{
					ID:    peer,
					Label: peer,
					Shape: visjs.ShapeBox,
					Color: peerColor,
					Group: "peer",
					Title: peer + "\ninferred from " + iface.Name,
				})
				seen[peer] = true
			}
			t.Edges = append(t.Edges, visjs.Edge{
				From:    ifaceID,
				To:      peer,
				Arrows:  "to",
				Physics: true,
				Dashes:  true,
				Color:   visjs.EdgeColor{Color: inferredColor, Opacity: 0.6},
				Smooth:  visjs.Smooth{Type: visjs.SmoothContinuous, Roundness: 0.5},
				Title:   "inferred connection",
			})
		}
	}

	// An XML extraction that found a device but nothing else
	// degenerates to a single node. Signal that to the viewer with a
	// sentinel rather than an error.
	if ext.Format == api.FormatXML && len(t.Nodes) == 1 && deviceID != "" {
		t.Nodes = append(t.Nodes, visjs.Node{
			ID:    sentinelID,
			Label: "No interfaces found",
			Shape: visjs.ShapeText,
			Color: sentinelColor,
			Group: "sentinel",
		})
		t.Edges = append(t.Edges, visjs.Edge{
			From:   deviceID,
			To:     sentinelID,
			Dashes: true,
			Color:  visjs.EdgeColor{Color: sentinelColor, Opacity: 0.5},
			Smooth: visjs.Smooth{Type: visjs.SmoothContinuous, Roundness: 0.5},
		})
	}
	return t
}

func interfaceTitle(iface extract.Interface, cat extract.Category) string {
	var b strings.Builder
	b.WriteString(iface.Name)
	b.WriteString("\ncategory: ")
	b.WriteString(string(cat))
	for _, kv := range []struct{ k, v string }{
		{"type", iface.Type},
		{"ip", iface.Address},
		{"vlan", iface.VLAN},
		{"speed", iface.Speed},
		{"status", iface.Status},
		{"mode", iface.Mode},
		{"description", iface.Description},
	} {
		if kv.v != "" {
			fmt.Fprintf(&b, "\n%s: %s", kv.k, kv.v)
		}
	}
	return b.String()
}
