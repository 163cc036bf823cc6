package pose

import "gocv.io/x/gocv"

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the keypoints of the first detected person.
	// Returns nil if nobody is detected.
	Detect(frame *gocv.Mat) (*Observation, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ScriptPath is the pose service script. Empty means search the usual locations.
	ScriptPath string

	// PythonPath is the interpreter that runs the service (default: a venv python or python3).
	PythonPath string

	// MinConfidence is the minimum person detection confidence threshold (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
	}
}
