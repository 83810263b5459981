package ops

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/meshadmin/topomapper/api"
)

var ErrTopologyNotFound = errors.New("topology not found", j.C("ERR_c47a1e60d93b52f8"))

// RecentLimit bounds how many completed extractions the registry
// keeps for the UI.
const RecentLimit = 50

// TopologyDB records completed extractions for serving. The topology
// inside each record is immutable; the registry only ever stores and
// returns whole records.
type TopologyDB interface {
	StoreTopology(ctx context.Context, rec api.TopologyRecord) error
	GetTopology(ctx context.Context, id string) (api.TopologyRecord, error)
	LatestTopology(ctx context.Context) (api.TopologyRecord, error)
	ListTopologies(ctx context.Context) ([]api.TopologyRecord, error)

	// WaitForChanges returns a channel that is closed on the next
	// store. Each call subscribes independently, so every waiter sees
	// every store.
	WaitForChanges() <-chan struct{}
}

// NewRecordID derives a stable id for an upload from its filename and
// arrival time.
func NewRecordID(filename string, at time.Time) string {
	h := sha1.New()
	_, _ = fmt.Fprintln(h, filename, at.UnixNano())
	return fmt.Sprintf("%x", h.Sum(nil))
}
