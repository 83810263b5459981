package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/server/ops"
)

func LatestTopologyHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		rec, err := d.TopologyDB().LatestTopology(ctx)
		if errors.Is(err, ops.ErrTopologyNotFound) {
			writeError(w, http.StatusNotFound, "no topology uploaded yet")
			return
		} else if err != nil {
			log.Error(ctx, errors.Wrap(err, "latest topology"))
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}
		writeJSON(ctx, w, rec)
	}
}

func GetTopologyHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		ctx := r.Context()
		rec, err := d.TopologyDB().GetTopology(ctx, p.ByName("id"))
		if errors.Is(err, ops.ErrTopologyNotFound) {
			writeError(w, http.StatusNotFound, "unknown topology")
			return
		} else if err != nil {
			log.Error(ctx, errors.Wrap(err, "get topology"))
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}
		writeJSON(ctx, w, rec)
	}
}

func ListTopologiesHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		recs, err := d.TopologyDB().ListTopologies(ctx)
		if err != nil {
			log.Error(ctx, errors.Wrap(err, "list topologies"))
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}
		writeJSON(ctx, w, api.ListTopologies{Topologies: recs})
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(ctx, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(b); err != nil {
		log.Error(ctx, err)
	}
}
