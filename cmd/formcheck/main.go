package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/config"
	"github.com/ayusman/formcheck/internal/csvlog"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/hook"
	"github.com/ayusman/formcheck/internal/logging"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/server"
	"github.com/ayusman/formcheck/internal/server/api"
	"github.com/ayusman/formcheck/internal/store"
)

func main() {
	configPath := flag.String("config", "./formcheck.toml", "path for the TOML config file")
	envFile := flag.String("env-file", ".env", "path for an optional .env file")
	exerciseName := flag.String("exercise", "", "exercise to analyze [squat | bicep_curl | overhead_press]")
	landmarksPath := flag.String("landmarks", "", "analyze a JSON lines landmark dump")
	videoPath := flag.String("video", "", "analyze a recorded video")
	annotatePath := flag.String("annotate", "", "write an annotated copy of -video to this path")
	keepHistory := flag.Bool("keep-history", false, "keep previous runs instead of clearing them")
	serve := flag.Bool("serve", false, "run the HTTP API")
	summary := flag.Bool("summary", false, "print the summary of the workout log and exit")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *exerciseName != "" {
		cfg.Exercise = *exerciseName
	}
	if *keepHistory {
		cfg.KeepHistory = true
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Logging.File,
		LogToStdout:   cfg.Logging.ToStdout,
		LogLevel:      cfg.Logging.Level,
		LogFormatJSON: cfg.Logging.JSON,
	})

	if *summary {
		if err := printSummary(cfg.Storage.CSVLog); err != nil {
			log.Fatalf("summary: %s", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, options{
		serve:     *serve,
		landmarks: *landmarksPath,
		video:     *videoPath,
		annotate:  *annotatePath,
	}); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	serve     bool
	landmarks string
	video     string
	annotate  string
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	if !opts.serve && opts.landmarks == "" && opts.video == "" {
		return errors.New("nothing to do: pass -landmarks, -video, -serve or -summary")
	}
	if opts.landmarks != "" && opts.video != "" {
		return errors.New("-landmarks and -video are mutually exclusive")
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	appCfg := app.Config{
		Store:       st,
		HookTimeout: cfg.Hooks.Timeout(),
		StrictHooks: cfg.Hooks.Strict,
		KeepHistory: cfg.KeepHistory,
	}

	if cfg.Storage.CSVLog != "" {
		csv, err := csvlog.New(cfg.Storage.CSVLog)
		if err != nil {
			return err
		}
		appCfg.CSVLog = csv
	}

	hooks := hook.NewManager(cfg.Hooks.Dir)
	if err := hooks.Discover(); err != nil {
		log.WithError(err).Warn("failed to discover hooks")
	}
	if len(hooks.List()) > 0 {
		appCfg.Hooks = hooks
		log.Infof("loaded %d hooks from %s", len(hooks.List()), hooks.Dir())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appCfg.Metrics = metrics.NewManager("formcheck", "analysis", reg)

	detectors := &detectorPool{config: pose.Config{
		ScriptPath:    cfg.Pose.ScriptPath,
		PythonPath:    cfg.Pose.PythonPath,
		MinConfidence: cfg.Pose.MinConfidence,
	}}
	defer detectors.Close()

	if opts.serve {
		hub := server.NewEventHub()
		appCfg.Sinks = append(appCfg.Sinks, hub)
		a := app.New(appCfg)
		defer a.Close()

		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			Analyzer:  a,
			Open:      detectors.opener(cfg.Pose.VideoWidth),
			Events:    hub,
			Gatherer:  reg,
		})
		return srv.ListenAndServe(ctx, cfg.Server.Addr())
	}

	appCfg.Sinks = append(appCfg.Sinks, exercise.SinkFunc(printRep))
	a := app.New(appCfg)

	req := app.Request{Exercise: cfg.Exercise}
	var annotator *app.Annotator

	if opts.landmarks != "" {
		src, err := pose.OpenJSONL(opts.landmarks)
		if err != nil {
			return err
		}
		req.Source, req.SourceName = src, opts.landmarks
	} else {
		src, err := detectors.openVideo(opts.video, cfg.Pose.VideoWidth)
		if err != nil {
			return err
		}
		req.Source, req.SourceName = src, opts.video

		if opts.annotate != "" {
			rec := capture.NewRecorder(opts.annotate, src.FPS())
			defer rec.Close()
			annotator = &app.Annotator{Source: src, Recorder: rec, MinConfidence: cfg.Pose.MinConfidence}
			req.OnFrame = annotator.OnFrame
		}
	}

	res, err := a.Analyze(ctx, req)
	if res != nil {
		fmt.Printf("\n%s\n", res.Summary.Text())
		fmt.Printf("frames: %d, skipped: %d, run: %s\n", res.Frames, res.Skipped, res.RunID)
	}
	if annotator != nil && annotator.Err() != nil {
		log.WithError(annotator.Err()).Warn("annotated video incomplete")
	}
	return err
}

func printRep(_ context.Context, ev exercise.RepEvent) error {
	fmt.Printf("rep %d: %s (%s, %.1f)\n", ev.RepIndex, ev.Feedback, ev.ErrorTag, ev.PrimaryMetric)
	return nil
}

func printSummary(path string) error {
	events, err := csvlog.ReadEvents(path)
	if err != nil {
		return err
	}
	fmt.Println(exercise.Summarize(events).Text())
	return nil
}

// detectorPool starts the pose service on first use and shares it across runs.
type detectorPool struct {
	config   pose.Config
	mu       sync.Mutex
	detector pose.Detector
}

func (p *detectorPool) get() (pose.Detector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detector != nil {
		return p.detector, nil
	}
	d, err := pose.NewServiceDetector(p.config)
	if err != nil {
		return nil, err
	}
	p.detector = d
	return d, nil
}

func (p *detectorPool) openVideo(path string, width int) (*app.DetectingSource, error) {
	d, err := p.get()
	if err != nil {
		return nil, err
	}
	return app.NewDetectingSource(capture.NewVideo(path, width), d)
}

func (p *detectorPool) opener(width int) api.SourceOpener {
	return func(kind api.SourceKind, path string) (pose.Source, error) {
		switch kind {
		case api.SourceLandmarks:
			return pose.OpenJSONL(path)
		case api.SourceVideo:
			src, err := p.openVideo(path, width)
			if err != nil {
				return nil, err
			}
			return src, nil
		}
		return nil, api.ErrUnsupportedSource
	}
}

func (p *detectorPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detector != nil {
		p.detector.Close()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.formcheck/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".formcheck", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
