package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/ayusman/formcheck/internal/csvlog"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/store"
	"github.com/ayusman/formcheck/testdata"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	app     *App
	store   *store.Store
	csv     *csvlog.Logger
	metrics *metrics.Manager
}

func newFixture(t *testing.T, keepHistory bool, extra ...exercise.Sink) *fixture {
	t.Helper()

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "formcheck.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	csv, err := csvlog.New(filepath.Join(dir, "logs", "workout_log.csv"))
	if err != nil {
		t.Fatalf("csvlog.New() error = %v", err)
	}

	m := metrics.NewTestManager()
	a := New(Config{
		Store:       s,
		CSVLog:      csv,
		Metrics:     m,
		Sinks:       extra,
		KeepHistory: keepHistory,
	})
	t.Cleanup(a.Close)

	return &fixture{app: a, store: s, csv: csv, metrics: m}
}

func landmarks(t *testing.T, e exercise.Exercise) pose.Source {
	t.Helper()
	src, err := testdata.OpenLandmarks(testdata.LandmarkFile(e))
	if err != nil {
		t.Fatalf("OpenLandmarks() error = %v", err)
	}
	return src
}

func tags(events []exercise.RepEvent) []exercise.ErrorTag {
	out := make([]exercise.ErrorTag, len(events))
	for i, ev := range events {
		out[i] = ev.ErrorTag
	}
	return out
}

func equalTags(a, b []exercise.ErrorTag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAnalyze_Fixtures(t *testing.T) {
	tests := []struct {
		exercise exercise.Exercise
		frames   int
		skipped  int
		want     []exercise.ErrorTag
	}{
		{
			exercise: exercise.Squat,
			frames:   31,
			skipped:  1,
			want:     []exercise.ErrorTag{exercise.TagNone, exercise.TagShallowSquat, exercise.TagCriticalShallow},
		},
		{
			exercise: exercise.BicepCurl,
			frames:   21,
			want:     []exercise.ErrorTag{exercise.TagNone, exercise.TagElbowSwinging, exercise.TagIncompleteContraction},
		},
		{
			exercise: exercise.OverheadPress,
			frames:   21,
			want:     []exercise.ErrorTag{exercise.TagNone, exercise.TagShortRangeOfMotion, exercise.TagNone},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.exercise), func(t *testing.T) {
			f := newFixture(t, false)

			res, err := f.app.Analyze(context.Background(), Request{
				Exercise:   string(tt.exercise),
				Source:     landmarks(t, tt.exercise),
				SourceName: testdata.LandmarkFile(tt.exercise),
			})
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			if res.Status != store.RunStatusFinished {
				t.Errorf("Status = %q, want finished", res.Status)
			}
			if res.Reps != len(tt.want) {
				t.Errorf("Reps = %d, want %d", res.Reps, len(tt.want))
			}
			if res.Frames != tt.frames || res.Skipped != tt.skipped {
				t.Errorf("Frames/Skipped = %d/%d, want %d/%d", res.Frames, res.Skipped, tt.frames, tt.skipped)
			}
			if got := tags(res.Events); !equalTags(got, tt.want) {
				t.Errorf("tags = %v, want %v", got, tt.want)
			}
			if res.Summary.TotalReps != len(tt.want) {
				t.Errorf("Summary.TotalReps = %d", res.Summary.TotalReps)
			}

			run, err := f.store.Runs().GetByID(res.RunID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if run.Status != store.RunStatusFinished || run.RepCount != len(tt.want) || run.FinishedAt == nil {
				t.Errorf("run record = %+v", run)
			}
			if run.Frames != tt.frames || run.Skipped != tt.skipped {
				t.Errorf("run frames/skipped = %d/%d", run.Frames, run.Skipped)
			}

			stored, err := f.store.Reps().Events(res.RunID)
			if err != nil {
				t.Fatalf("Events() error = %v", err)
			}
			if got := tags(stored); !equalTags(got, tt.want) {
				t.Errorf("stored tags = %v, want %v", got, tt.want)
			}

			logged, err := csvlog.ReadEvents(f.csv.Path())
			if err != nil {
				t.Fatalf("ReadEvents() error = %v", err)
			}
			if got := tags(logged); !equalTags(got, tt.want) {
				t.Errorf("logged tags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyze_Metrics(t *testing.T) {
	f := newFixture(t, false)

	if _, err := f.app.Analyze(context.Background(), Request{
		Exercise: "squat",
		Source:   landmarks(t, exercise.Squat),
	}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	m := f.metrics
	if got := testutil.ToFloat64(m.CounterFrames.WithLabelValues("squat", metrics.FrameProcessed)); got != 30 {
		t.Errorf("processed frames = %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.CounterFrames.WithLabelValues("squat", metrics.FrameSkipped)); got != 1 {
		t.Errorf("skipped frames = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CounterReps.WithLabelValues("squat", string(exercise.TagCriticalShallow))); got != 1 {
		t.Errorf("critical reps = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CounterRuns.WithLabelValues("squat", string(store.RunStatusFinished))); got != 1 {
		t.Errorf("finished runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GaugeActiveRuns); got != 0 {
		t.Errorf("active runs = %v, want 0", got)
	}
}

func TestAnalyze_UnknownExercise(t *testing.T) {
	f := newFixture(t, false)

	src := &countingSource{}
	_, err := f.app.Analyze(context.Background(), Request{Exercise: "lunge", Source: src})
	if !errors.Is(err, exercise.ErrUnknownExercise) {
		t.Fatalf("Analyze() error = %v, want ErrUnknownExercise", err)
	}
	if src.reads != 0 {
		t.Errorf("source was read %d times", src.reads)
	}
	if !src.closed {
		t.Error("source was not closed")
	}

	runs, err := f.store.Runs().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d run records, want 0", len(runs))
	}
}

func TestAnalyze_NoSource(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.app.Analyze(context.Background(), Request{Exercise: "squat"}); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Analyze() error = %v, want ErrNoSource", err)
	}
}

func TestAnalyze_History(t *testing.T) {
	for _, keep := range []bool{false, true} {
		name := "clear"
		if keep {
			name = "keep"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, keep)

			for i := 0; i < 2; i++ {
				if _, err := f.app.Analyze(context.Background(), Request{
					Exercise: "curl",
					Source:   landmarks(t, exercise.BicepCurl),
				}); err != nil {
					t.Fatalf("Analyze() #%d error = %v", i, err)
				}
			}

			wantRuns, wantRows := 1, 3
			if keep {
				wantRuns, wantRows = 2, 6
			}

			runs, err := f.store.Runs().List(0)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(runs) != wantRuns {
				t.Errorf("runs = %d, want %d", len(runs), wantRuns)
			}

			logged, err := csvlog.ReadEvents(f.csv.Path())
			if err != nil {
				t.Fatalf("ReadEvents() error = %v", err)
			}
			if len(logged) != wantRows {
				t.Errorf("log rows = %d, want %d", len(logged), wantRows)
			}
		})
	}
}

func TestAnalyze_SinkFailure(t *testing.T) {
	errFull := errors.New("disk full")
	f := newFixture(t, false, exercise.SinkFunc(func(context.Context, exercise.RepEvent) error {
		return errFull
	}))

	res, err := f.app.Analyze(context.Background(), Request{
		Exercise: "squat",
		Source:   landmarks(t, exercise.Squat),
	})
	if !errors.Is(err, errFull) {
		t.Fatalf("Analyze() error = %v, want %v", err, errFull)
	}
	if res == nil {
		t.Fatal("expected a partial result")
	}
	if res.Status != store.RunStatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	if len(res.Events) != 1 || res.Frames != 12 {
		t.Errorf("events/frames = %d/%d, want 1/12", len(res.Events), res.Frames)
	}

	run, err := f.store.Runs().GetByID(res.RunID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Status != store.RunStatusFailed || run.Error == "" {
		t.Errorf("run record = %+v", run)
	}
}

func TestAnalyze_OnFrame(t *testing.T) {
	f := newFixture(t, false)

	var frames, closed int
	var last exercise.State
	_, err := f.app.Analyze(context.Background(), Request{
		Exercise: "press",
		Source:   landmarks(t, exercise.OverheadPress),
		OnFrame: func(_ pose.Frame, st exercise.State, out exercise.Outcome) {
			frames++
			if out.Closed {
				closed++
			}
			last = st
		},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if frames != 21 || closed != 3 {
		t.Errorf("frames/closed = %d/%d, want 21/3", frames, closed)
	}
	if last.RepCount != 3 || last.Phase != exercise.Down {
		t.Errorf("last state = %+v", last)
	}
}

func TestStart_RunInProgress(t *testing.T) {
	f := newFixture(t, false)

	src := newBlockingSource()
	var wg sync.WaitGroup
	wg.Add(1)

	var res *Result
	var runErr error
	id, err := f.app.Start(Request{Exercise: "squat", Source: src}, func(r *Result, err error) {
		res, runErr = r, err
		wg.Done()
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-src.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not start")
	}

	if current, ok := f.app.Current(); !ok || current != id {
		t.Errorf("Current() = %q, %v, want %q", current, ok, id)
	}

	_, err = f.app.Analyze(context.Background(), Request{Exercise: "squat", Source: landmarks(t, exercise.Squat)})
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Analyze() error = %v, want ErrRunInProgress", err)
	}

	if !f.app.Cancel() {
		t.Fatal("Cancel() = false")
	}
	wg.Wait()

	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("run error = %v, want context.Canceled", runErr)
	}
	if res.Status != store.RunStatusCancelled {
		t.Errorf("Status = %q, want cancelled", res.Status)
	}
	if _, ok := f.app.Current(); ok {
		t.Error("run slot still taken")
	}
	if f.app.Cancel() {
		t.Error("Cancel() with no run = true")
	}

	run, err := f.store.Runs().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Status != store.RunStatusCancelled {
		t.Errorf("run status = %q", run.Status)
	}
}

type countingSource struct {
	reads  int
	closed bool
}

func (s *countingSource) Next(context.Context) (pose.Frame, error) {
	s.reads++
	return pose.Frame{}, errors.New("unexpected read")
}

func (s *countingSource) Close() error {
	s.closed = true
	return nil
}

// blockingSource yields one empty frame and then waits for cancellation.
type blockingSource struct {
	started chan struct{}
	once    sync.Once
	index   int
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{})}
}

func (s *blockingSource) Next(ctx context.Context) (pose.Frame, error) {
	if s.index == 0 {
		s.index++
		return pose.Frame{}, nil
	}
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return pose.Frame{}, ctx.Err()
}

func (s *blockingSource) Close() error {
	return nil
}
