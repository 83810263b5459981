package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshadmin/topomapper/api"
)

func TestStreamRendersUpload(t *testing.T) {
	srv, _ := newTestServer(t)

	uploadFile(t, srv, "fw1.xml",
		`<device><name>fw1</name><interface><name>eth0</name><type>wan</type></interface></device>`)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/topomapper/api/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	jtest.RequireNil(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = resp.Body.Close()

	jtest.RequireNil(t, conn.WriteJSON(api.ViewerFrame{
		Type: api.FrameSurface, Width: 800, Height: 600,
	}))

	jtest.RequireNil(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var sawTopology bool
	var positions []api.NodePosition
	for positions == nil {
		var f api.ServerFrame
		jtest.RequireNil(t, conn.ReadJSON(&f))
		switch f.Type {
		case api.FrameTopology:
			require.NotNil(t, f.Topology)
			assert.True(t, f.Topology.HasNode("fw1"))
			sawTopology = true
		case api.FramePositions:
			positions = f.Positions
		}
	}

	assert.True(t, sawTopology)
	require.Len(t, positions, 2)
	ids := []string{positions[0].ID, positions[1].ID}
	assert.ElementsMatch(t, []string{"fw1", "eth0_0"}, ids)
}
