package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/server/ops"
	"github.com/meshadmin/topomapper/server/ops/config"
	"github.com/meshadmin/topomapper/server/render"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// refreshInterval backstops the change signal so sessions never miss
// an upload stored through another server instance.
const refreshInterval = 5 * time.Second

// viewerSurface is the server-side stand-in for the browser's drawing
// surface. Dimensions arrive over the websocket; until the first
// surface frame it reports 0x0, which is what drives the controller's
// container-wait state.
type viewerSurface struct {
	mu     sync.Mutex
	width  int
	height int
}

func (s *viewerSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *viewerSurface) ForceDefaultSize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width <= 0 || s.height <= 0 {
		s.width, s.height = w, h
	}
}

func (s *viewerSurface) SetSize(w, h int) {
	s.mu.Lock()
	s.width, s.height = w, h
	s.mu.Unlock()
}

// StreamHandler runs one viewer session: a rendering controller bound
// to this connection's surface, fed with the latest topology and
// pushing status and stabilized positions back to the browser.
func StreamHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error(ctx, errors.Wrap(err, "websocket upgrade"))
			return
		}
		defer conn.Close()

		var writeMu sync.Mutex
		send := func(f api.ServerFrame) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(f); err != nil {
				cancel()
			}
		}

		surface := &viewerSurface{}
		cfg := config.GetConfig()
		ctrl := render.NewController(surface, render.NewForceEngine, render.Config{
			Render:  cfg.Render,
			Physics: cfg.Physics,
			OnStatus: func(st api.RenderStatus) {
				send(api.ServerFrame{Type: api.FrameStatus, Status: &st})
			},
			OnPositions: func(pos []api.NodePosition) {
				send(api.ServerFrame{Type: api.FramePositions, Positions: pos})
			},
		})
		go func() {
			_ = ctrl.Run(ctx)
		}()

		go watchTopologies(ctx, d.TopologyDB(), ctrl, send)

		for {
			var f api.ViewerFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Type == api.FrameSurface {
				surface.SetSize(f.Width, f.Height)
				ctrl.Resize()
			}
		}
	}
}

func watchTopologies(ctx context.Context, db ops.TopologyDB,
	ctrl *render.Controller, send func(api.ServerFrame),
) {
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()

	var lastID string
	push := func() {
		rec, err := db.LatestTopology(ctx)
		if errors.Is(err, ops.ErrTopologyNotFound) {
			return
		} else if err != nil {
			log.Error(ctx, errors.Wrap(err, "load latest topology"))
			return
		}
		if rec.ID == lastID {
			return
		}
		lastID = rec.ID
		topo := rec.Topology
		send(api.ServerFrame{Type: api.FrameTopology, Topology: &topo})
		ctrl.SetTopology(topo)
	}

	push()
	changed := db.WaitForChanges()
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
		case <-changed:
			changed = db.WaitForChanges()
		}
		push()
	}
}
