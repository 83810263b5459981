package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/server/extract"
	"github.com/meshadmin/topomapper/server/ops"
	"github.com/meshadmin/topomapper/server/ops/config"
)

// maxUploadBytes bounds a single configuration file. Device configs
// are text; anything bigger than this isn't one.
const maxUploadBytes = 10 << 20

// UploadHandler accepts a single multipart configuration file, runs
// the extraction pipeline and responds with the topology document.
// Extraction failures map to a 400 with an {error} payload; nothing
// partial is ever returned.
func UploadHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file provided")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read file")
			return
		}

		format := extract.DetectFormat(header.Filename, content)
		ext, err := extract.Extract(header.Filename, content)
		if isExtractionError(err) {
			uploadsHandled.WithLabelValues(string(format), "rejected").Inc()
			log.Info(ctx, "upload rejected", j.MKV{
				"filename": header.Filename, "reason": err.Error(),
			})
			writeError(w, http.StatusBadRequest, err.Error())
			return
		} else if err != nil {
			uploadsHandled.WithLabelValues(string(format), "error").Inc()
			log.Error(ctx, errors.Wrap(err, "extract"))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now().UTC()
		rec := api.TopologyRecord{
			ID:        ops.NewRecordID(header.Filename, now),
			Filename:  header.Filename,
			Format:    ext.Format,
			CreatedAt: now,
			Topology:  ops.BuildTopology(ext, config.GetConfig().Styles),
		}
		if err := d.TopologyDB().StoreTopology(ctx, rec); err != nil {
			uploadsHandled.WithLabelValues(string(format), "error").Inc()
			log.Error(ctx, errors.Wrap(err, "store topology"))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		uploadsHandled.WithLabelValues(string(format), "ok").Inc()
		log.Info(ctx, "topology extracted", j.MKV{
			"filename": header.Filename,
			"format":   ext.Format,
			"nodes":    len(rec.Topology.Nodes),
			"edges":    len(rec.Topology.Edges),
		})
		writeJSON(ctx, w, rec.Topology)
	}
}

func isExtractionError(err error) bool {
	return errors.IsAny(err,
		extract.ErrEmptyInput,
		extract.ErrUnrecognizedFormat,
		extract.ErrMalformedDocument,
	)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(api.Error{Error: msg})
}
