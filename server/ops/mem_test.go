package ops

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshadmin/topomapper/api"
)

func TestMemDBRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := NewMemDB()

	_, err := db.LatestTopology(ctx)
	jtest.Assert(t, ErrTopologyNotFound, err)

	rec := api.TopologyRecord{
		ID:        NewRecordID("r1.txt", time.Now()),
		Filename:  "r1.txt",
		Format:    api.FormatText,
		CreatedAt: time.Now().UTC(),
	}
	jtest.RequireNil(t, db.StoreTopology(ctx, rec))

	got, err := db.GetTopology(ctx, rec.ID)
	jtest.RequireNil(t, err)
	assert.Equal(t, rec, got)

	latest, err := db.LatestTopology(ctx)
	jtest.RequireNil(t, err)
	assert.Equal(t, rec.ID, latest.ID)

	_, err = db.GetTopology(ctx, "missing")
	jtest.Assert(t, ErrTopologyNotFound, err)
}

func TestMemDBRecentOrderAndCap(t *testing.T) {
	ctx := context.Background()
	db := NewMemDB()

	for i := 0; i < RecentLimit+10; i++ {
		rec := api.TopologyRecord{ID: fmt.Sprintf("rec-%d", i)}
		jtest.RequireNil(t, db.StoreTopology(ctx, rec))
	}

	list, err := db.ListTopologies(ctx)
	jtest.RequireNil(t, err)
	require.Len(t, list, RecentLimit)
	assert.Equal(t, fmt.Sprintf("rec-%d", RecentLimit+9), list[0].ID)

	// The oldest records fell off the end.
	_, err = db.GetTopology(ctx, "rec-0")
	jtest.Assert(t, ErrTopologyNotFound, err)
}

func TestMemDBChangeSignalBroadcast(t *testing.T) {
	ctx := context.Background()
	db := NewMemDB()

	// One store wakes every waiter, not just the first to select.
	first := db.WaitForChanges()
	second := db.WaitForChanges()

	select {
	case <-first:
		t.Fatal("unexpected signal before store")
	default:
	}

	jtest.RequireNil(t, db.StoreTopology(ctx, api.TopologyRecord{ID: "a"}))

	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("expected change signal")
		}
	}

	// A subscription taken after the store only sees the next one.
	third := db.WaitForChanges()
	select {
	case <-third:
		t.Fatal("unexpected signal for new waiter")
	default:
	}
	jtest.RequireNil(t, db.StoreTopology(ctx, api.TopologyRecord{ID: "b"}))
	select {
	case <-third:
	case <-time.After(time.Second):
		t.Fatal("expected change signal")
	}
}
