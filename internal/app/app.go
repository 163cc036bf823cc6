// Package app runs analyses of frame streams. Each run drives one rep machine
// over one stream, records every closed repetition to the configured sinks and
// updates the run record and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/csvlog"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/hook"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/store"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("an analysis run is already in progress")

// ErrNoSource is returned for a request without a frame source.
var ErrNoSource = errors.New("no frame source")

// Config holds the collaborators of an App. Every field is optional.
type Config struct {
	Store       *store.Store
	CSVLog      *csvlog.Logger
	Hooks       *hook.Manager
	HookTimeout time.Duration
	StrictHooks bool
	Metrics     *metrics.Manager
	// Sinks receive every event after the built-in sinks.
	Sinks []exercise.Sink
	// KeepHistory skips clearing the sinks at the start of a run.
	KeepHistory bool
}

// FrameFunc observes every frame after the machine has processed it.
type FrameFunc func(f pose.Frame, st exercise.State, out exercise.Outcome)

// Request describes one analysis.
type Request struct {
	Exercise string
	// Source is closed when the run ends.
	Source     pose.Source
	SourceName string
	// RunID is generated when empty.
	RunID   string
	OnFrame FrameFunc
}

// Result is the outcome of a run. A failed or cancelled run still reports the
// repetitions closed before it stopped.
type Result struct {
	RunID    string              `json:"run_id"`
	Exercise exercise.Exercise   `json:"exercise"`
	Status   store.RunStatus     `json:"status"`
	Reps     int                 `json:"reps"`
	Events   []exercise.RepEvent `json:"events"`
	Summary  exercise.Summary    `json:"summary"`
	Frames   int                 `json:"frames"`
	Skipped  int                 `json:"skipped"`
	Duration time.Duration       `json:"duration"`
}

// App owns at most one active run.
type App struct {
	config Config

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(config Config) *App {
	if config.HookTimeout <= 0 {
		config.HookTimeout = 5 * time.Second
	}
	return &App{config: config}
}

// Store returns the configured store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Current returns the ID of the active run.
func (a *App) Current() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.current != ""
}

// Analyze runs req to completion. Unknown exercises are rejected before any
// frame is read.
func (a *App) Analyze(ctx context.Context, req Request) (*Result, error) {
	ex, err := a.prepare(&req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.acquire(req.RunID, cancel); err != nil {
		req.Source.Close()
		return nil, err
	}
	defer a.release()

	return a.run(ctx, ex, req)
}

// Start runs req in the background and returns its run ID once the run slot
// is taken. done, if not nil, is called with the outcome.
func (a *App) Start(req Request, done func(*Result, error)) (string, error) {
	ex, err := a.prepare(&req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := a.acquire(req.RunID, cancel); err != nil {
		cancel()
		req.Source.Close()
		return "", err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		res, err := a.run(ctx, ex, req)
		a.release()
		cancel()

		if err != nil {
			log.WithError(err).WithField("run", req.RunID).Warn("background run ended with error")
		}
		if done != nil {
			done(res, err)
		}
	}()

	return req.RunID, nil
}

// Cancel stops the active run, if any.
func (a *App) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return false
	}
	a.cancel()
	return true
}

// Close cancels the active run and waits for background runs to finish.
func (a *App) Close() {
	a.Cancel()
	a.wg.Wait()
}

func (a *App) prepare(req *Request) (exercise.Exercise, error) {
	ex, err := exercise.Parse(req.Exercise)
	if err != nil {
		if req.Source != nil {
			req.Source.Close()
		}
		return "", err
	}
	if req.Source == nil {
		return "", ErrNoSource
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return ex, nil
}

func (a *App) acquire(runID string, cancel context.CancelFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != "" {
		return ErrRunInProgress
	}
	a.current = runID
	a.cancel = cancel
	return nil
}

func (a *App) release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = ""
	a.cancel = nil
}

// sinks builds the fan-out for a run. The memory sink comes first so the
// result holds every event that reached any sink.
func (a *App) sinks(runID string) (*exercise.MemorySink, exercise.MultiSink) {
	memory := exercise.NewMemorySink()
	multi := exercise.MultiSink{memory}

	if a.config.Store != nil {
		multi = append(multi, store.NewRepSink(a.config.Store, runID))
	}
	if a.config.CSVLog != nil {
		multi = append(multi, a.config.CSVLog)
	}
	if a.config.Hooks != nil {
		hs := hook.NewSink(a.config.Hooks, hook.NewExecutor(a.config.HookTimeout), runID)
		hs.Strict = a.config.StrictHooks
		multi = append(multi, hs)
	}
	multi = append(multi, a.config.Sinks...)

	return memory, multi
}

func (a *App) run(ctx context.Context, ex exercise.Exercise, req Request) (*Result, error) {
	defer req.Source.Close()

	started := time.Now()
	logger := log.WithFields(log.Fields{"run": req.RunID, "exercise": ex, "source": req.SourceName})

	record := &store.Run{ID: req.RunID, Exercise: ex, Source: req.SourceName, StartedAt: started}
	if a.config.Store != nil {
		if err := a.config.Store.Runs().Create(record); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	memory, sinks := a.sinks(req.RunID)
	if !a.config.KeepHistory {
		if err := sinks.Clear(ctx); err != nil {
			err = fmt.Errorf("clear sinks: %w", err)
			return a.finish(ex, record, nil, memory, started, err)
		}
	}

	sess, err := exercise.NewSession(ex, sinks)
	if err != nil {
		return a.finish(ex, record, nil, memory, started, err)
	}

	if m := a.config.Metrics; m != nil {
		m.GaugeActiveRuns.Inc()
		defer m.GaugeActiveRuns.Dec()
	}

	logger.Info("run started")
	err = a.loop(ctx, ex, sess, req)
	return a.finish(ex, record, sess, memory, started, err)
}

func (a *App) loop(ctx context.Context, ex exercise.Exercise, sess *exercise.Session, req Request) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := req.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		out, err := sess.Process(ctx, f)
		a.observe(ex, out)
		if err != nil {
			return err
		}

		if req.OnFrame != nil {
			req.OnFrame(f, sess.Machine().State(), out)
		}
	}
}

func (a *App) observe(ex exercise.Exercise, out exercise.Outcome) {
	m := a.config.Metrics
	if m == nil {
		return
	}

	status := metrics.FrameProcessed
	if out.Skipped {
		status = metrics.FrameSkipped
	}
	m.CounterFrames.WithLabelValues(string(ex), status).Inc()

	if out.Closed {
		m.CounterReps.WithLabelValues(string(ex), string(out.Event.ErrorTag)).Inc()
	}
}

func (a *App) finish(
	ex exercise.Exercise,
	record *store.Run,
	sess *exercise.Session,
	memory *exercise.MemorySink,
	started time.Time,
	runErr error,
) (*Result, error) {
	events := memory.Events()
	res := &Result{
		RunID:    record.ID,
		Exercise: ex,
		Status:   store.RunStatusFinished,
		Events:   events,
		Summary:  exercise.Summarize(events),
		Duration: time.Since(started),
	}
	if sess != nil {
		res.Reps = sess.Machine().State().RepCount
		res.Frames = sess.Frames()
		res.Skipped = sess.Skipped()
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		res.Status = store.RunStatusCancelled
	default:
		res.Status = store.RunStatusFailed
	}

	logger := log.WithFields(log.Fields{
		"run":      res.RunID,
		"exercise": ex,
		"status":   res.Status,
		"reps":     res.Reps,
		"frames":   res.Frames,
		"skipped":  res.Skipped,
	})

	if a.config.Store != nil {
		record.Status = res.Status
		record.RepCount = res.Reps
		record.Frames = res.Frames
		record.Skipped = res.Skipped
		if runErr != nil {
			record.Error = runErr.Error()
		}
		if err := a.config.Store.Runs().Finish(record); err != nil {
			logger.WithError(err).Error("failed to finish run record")
		}
	}

	if m := a.config.Metrics; m != nil {
		m.CounterRuns.WithLabelValues(string(ex), string(res.Status)).Inc()
		m.HistRunDuration.Observe(res.Duration.Seconds())
	}

	if runErr != nil {
		logger.WithError(runErr).Warn("run stopped")
		return res, runErr
	}
	logger.Info("run finished")
	return res, nil
}
