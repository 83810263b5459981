package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	jlog "github.com/luno/jettison/log"
)

// jsonLogger renders jettison logs as one JSON object per line on
// stdout, for collection by the container runtime.
type jsonLogger struct {
	*log.Logger
}

func (l *jsonLogger) Log(_ context.Context, entry jlog.Entry) string {
	b, err := json.Marshal(entry)
	if err != nil {
		l.Printf("logger: failed to marshal log: %v", err)
		l.Print(entry.Message)
		return entry.Message
	}
	l.Print(string(b))
	return string(b)
}

func InitLogging() {
	jlog.SetLogger(&jsonLogger{Logger: log.New(os.Stdout, "", 0)})
}
