package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	jlog "github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/server/handlers"
	"github.com/meshadmin/topomapper/server/ops"
	"github.com/meshadmin/topomapper/server/ops/config"
)

var watchDir = flag.String("watch", "", "directory of configuration files to ingest on change")

type state struct {
	Registry ops.TopologyDB
}

func (s state) TopologyDB() ops.TopologyDB {
	return s.Registry
}

func main() {
	InitLogging()
	flag.Parse()
	config.MustLoadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := state{Registry: ops.NewMemDB()}
	pool, err := ops.NewRedisPool(ctx)
	if err != nil {
		jlog.Error(ctx, errors.Wrap(err, "failed to connect to redis, falling back to memory db"))
	} else {
		s.Registry = ops.NewRedisTopologyDB(pool)
	}

	var wg sync.WaitGroup

	if *watchDir != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ops.WatchDir(ctx, *watchDir, func(ctx context.Context, path string) {
				if err := ops.IngestFile(ctx, s.Registry, path); err != nil {
					jlog.Error(ctx, err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				jlog.Error(ctx, errors.Wrap(err, "watcher stopped"))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWebServer(ctx, handlers.CreateRouter(ctx, s), 80)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWebServer(ctx, handlers.CreateDebugRouter(), 8080)
	}()

	wg.Wait()
}

func runWebServer(ctx context.Context, router *httprouter.Router, port int) {
	srv := &http.Server{
		BaseContext: func(listener net.Listener) context.Context { return ctx },
		Handler:     router,
		Addr:        ":" + strconv.Itoa(port),
	}
	go shutdownOnCancel(ctx, srv)
	jlog.Info(ctx, "server listening", j.KV("port", port))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
	jlog.Info(ctx, "server terminated", j.KV("port", port))
}

func shutdownOnCancel(ctx context.Context, server *http.Server) {
	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	jlog.Info(ctx, "shutting down http server")
	_ = server.Shutdown(ctx)
}
