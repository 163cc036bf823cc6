package pose

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Frame is one observation in capture order.
type Frame struct {
	Index int
	// Observation is nil when nobody was detected in the frame.
	Observation *Observation
}

// Source supplies frames one at a time in capture order.
// Next returns io.EOF once the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// SliceSource plays back in-memory observations.
type SliceSource struct {
	observations []Observation
	index        int
}

// NewSliceSource creates a Source over the given observations.
func NewSliceSource(observations []Observation) *SliceSource {
	return &SliceSource{observations: observations}
}

// Next returns the next observation or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.index >= len(s.observations) {
		return Frame{}, io.EOF
	}
	f := Frame{Index: s.index, Observation: &s.observations[s.index]}
	s.index++
	return f, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error {
	return nil
}

// jsonlRecord is one line of a landmark dump.
type jsonlRecord struct {
	Frame     *int         `json:"frame"`
	Keypoints [][3]float64 `json:"keypoints"`
}

// JSONLSource reads pre-computed keypoints, one JSON object per line:
//
//	{"frame": 12, "keypoints": [[x, y, conf], ...]}
//
// An empty keypoints list means nobody was detected in that frame.
type JSONLSource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
	next    int
}

// OpenJSONL opens a landmark dump file.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open landmarks: %w", err)
	}
	src := NewJSONLSource(f)
	src.closer = f
	return src, nil
}

// NewJSONLSource reads JSON lines from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLSource{scanner: scanner}
}

// Next decodes the next non-blank line.
func (s *JSONLSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("read landmarks: %w", err)
			}
			return Frame{}, io.EOF
		}
		s.line++

		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return Frame{}, fmt.Errorf("landmarks line %d: %w", s.line, err)
		}

		index := s.next
		if rec.Frame != nil {
			index = *rec.Frame
		}
		s.next = index + 1

		f := Frame{Index: index}
		if len(rec.Keypoints) > 0 {
			obs := observationFromTriples(rec.Keypoints)
			f.Observation = &obs
		}
		return f, nil
	}
}

// Close closes the underlying file, if any.
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// WriteJSONL encodes observations in the format read by JSONLSource.
func WriteJSONL(w io.Writer, observations []Observation) error {
	enc := json.NewEncoder(w)
	for i := range observations {
		frame := i
		rec := jsonlRecord{Frame: &frame, Keypoints: make([][3]float64, NumKeypoints)}
		for k, kp := range observations[i].Keypoints {
			rec.Keypoints[k] = [3]float64{kp.X, kp.Y, kp.Confidence}
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
