package ops

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/server/extract"
	"github.com/meshadmin/topomapper/server/ops/config"
)

// IngestFile runs the extraction pipeline over a configuration file
// on disk and stores the resulting topology. Used by watch mode,
// where files arrive outside the upload endpoint.
func IngestFile(ctx context.Context, db TopologyDB, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file", j.KV("path", path))
	}

	name := filepath.Base(path)
	ext, err := extract.Extract(name, content)
	if err != nil {
		return errors.Wrap(err, "extract", j.KV("path", path))
	}

	now := time.Now().UTC()
	rec := api.TopologyRecord{
		ID:        NewRecordID(name, now),
		Filename:  name,
		Format:    ext.Format,
		CreatedAt: now,
		Topology:  BuildTopology(ext, config.GetConfig().Styles),
	}
	if err := db.StoreTopology(ctx, rec); err != nil {
		return errors.Wrap(err, "store topology", j.KV("path", path))
	}
	log.Info(ctx, "topology ingested", j.MKV{
		"filename": name,
		"format":   ext.Format,
		"nodes":    len(rec.Topology.Nodes),
		"edges":    len(rec.Topology.Edges),
	})
	return nil
}
