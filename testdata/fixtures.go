// Package testdata holds recorded landmark dumps for end-to-end tests.
//
//	squat.jsonl           3 reps: 88° clean, 105° shallow, 120° critical; one frame without a person
//	bicep_curl.jsonl      3 reps: clean, elbow swinging, incomplete contraction
//	overhead_press.jsonl  3 reps: clean, short range of motion, clean
package testdata

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

//go:embed landmarks/*.jsonl
var landmarksFS embed.FS

// LandmarkFile returns the fixture name for an exercise.
func LandmarkFile(e exercise.Exercise) string {
	return string(e) + ".jsonl"
}

// Landmarks returns the raw contents of a landmark dump.
func Landmarks(name string) ([]byte, error) {
	data, err := landmarksFS.ReadFile("landmarks/" + name)
	if err != nil {
		return nil, fmt.Errorf("load landmarks %s: %w", name, err)
	}
	return data, nil
}

// OpenLandmarks returns a frame source over a landmark dump.
func OpenLandmarks(name string) (*pose.JSONLSource, error) {
	data, err := Landmarks(name)
	if err != nil {
		return nil, err
	}
	return pose.NewJSONLSource(bytes.NewReader(data)), nil
}
