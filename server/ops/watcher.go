package ops

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// watchDebounce absorbs the bursts of write events editors and scp
// produce for a single file change.
const watchDebounce = 500 * time.Millisecond

var watchExtensions = map[string]bool{
	".xml": true, ".json": true, ".txt": true, ".conf": true, ".cfg": true,
}

// WatchDir watches a directory of configuration files and calls fn
// with the path of each changed file, debounced per file. It blocks
// until ctx is cancelled.
func WatchDir(ctx context.Context, dir string, fn func(ctx context.Context, path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.Wrap(err, "watch dir", j.KV("dir", dir))
	}
	log.Info(ctx, "watching configuration directory", j.KV("dir", dir))

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !watchExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			path := event.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				if ctx.Err() != nil {
					return
				}
				log.Info(ctx, "configuration file changed", j.KV("path", path))
				fn(ctx, path)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, errors.Wrap(err, "watcher error"))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
