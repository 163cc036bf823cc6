// Package csvlog appends completed repetitions to a CSV workout log.
package csvlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/formcheck/internal/exercise"
)

// DefaultPath is where the workout log is written when no path is configured.
const DefaultPath = "data/logs/workout_log.csv"

// TimestampLayout formats the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the first row of every log file.
var Header = []string{"timestamp", "exercise", "rep_count", "primary_metric", "secondary_metric", "error_tag"}

// Logger is an exercise.Sink writing one CSV row per repetition.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New opens the log at path, creating parent directories and writing the
// header if the file does not exist yet.
func New(path string) (*Logger, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &Logger{path: path, now: time.Now}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := l.writeHeader(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat workout log: %w", err)
	}
	return l, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Record appends ev to the log.
func (l *Logger) Record(_ context.Context, ev exercise.RepEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open workout log: %w", err)
	}
	defer f.Close()

	tag := ev.ErrorTag
	if tag == "" {
		tag = exercise.TagNone
	}

	w := csv.NewWriter(f)
	err = w.Write([]string{
		l.now().Format(TimestampLayout),
		ev.Exercise.Label(),
		strconv.Itoa(ev.RepIndex),
		formatMetric(ev.PrimaryMetric),
		formatMetric(ev.SecondaryMetric),
		string(tag),
	})
	if err != nil {
		return fmt.Errorf("write workout log: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Clear truncates the log back to its header.
func (l *Logger) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeHeader()
}

func (l *Logger) writeHeader() error {
	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("create workout log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write workout log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// ReadEvents loads the repetitions recorded in a log file. Feedback, side
// and frame are not stored and are left empty.
func ReadEvents(path string) ([]exercise.RepEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) ([]exercise.RepEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []exercise.RepEvent{}, nil
		}
		return nil, fmt.Errorf("read workout log header: %w", err)
	}

	events := []exercise.RepEvent{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read workout log: %w", err)
		}

		ev, err := parseRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("workout log line %d: %w", line, err)
		}
		events = append(events, ev)
	}
}

func parseRecord(rec []string) (exercise.RepEvent, error) {
	ex, err := exercise.Parse(rec[1])
	if err != nil {
		return exercise.RepEvent{}, err
	}
	index, err := strconv.Atoi(rec[2])
	if err != nil {
		return exercise.RepEvent{}, fmt.Errorf("rep_count: %w", err)
	}
	primary, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return exercise.RepEvent{}, fmt.Errorf("primary_metric: %w", err)
	}
	secondary, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return exercise.RepEvent{}, fmt.Errorf("secondary_metric: %w", err)
	}

	return exercise.RepEvent{
		Exercise:        ex,
		RepIndex:        index,
		PrimaryMetric:   primary,
		SecondaryMetric: secondary,
		ErrorTag:        exercise.ErrorTag(rec[5]),
	}, nil
}
