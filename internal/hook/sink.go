package hook

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ayusman/formcheck/internal/exercise"
)

// RepEvent is the Request.Event value for a completed repetition.
const RepEvent = "rep"

// Sink runs every interested hook for each recorded repetition, in name order.
type Sink struct {
	manager  *Manager
	executor *Executor
	runID    string
	// Strict turns hook failures into sink errors. Otherwise they are logged.
	Strict bool
}

// NewSink creates a Sink over discovered hooks.
func NewSink(manager *Manager, executor *Executor, runID string) *Sink {
	return &Sink{manager: manager, executor: executor, runID: runID}
}

// Record implements exercise.Sink.
func (s *Sink) Record(ctx context.Context, ev exercise.RepEvent) error {
	var errs error
	for _, h := range s.manager.List() {
		if !h.Wants(ev) {
			continue
		}

		req := &Request{Event: RepEvent, RunID: s.runID, Rep: ev, Config: h.Manifest.Config}
		resp, err := s.executor.Execute(ctx, h, req)
		if err == nil && !resp.Success {
			err = fmt.Errorf("hook %s: %s", h.Manifest.Name, resp.Error)
		}
		if err == nil {
			continue
		}

		if s.Strict {
			errs = multierr.Append(errs, err)
			continue
		}
		log.WithError(err).WithFields(log.Fields{
			"hook": h.Manifest.Name,
			"rep":  ev.RepIndex,
		}).Warn("hook failed")
	}
	return errs
}
