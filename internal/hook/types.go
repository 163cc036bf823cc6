// Package hook runs external executables for completed repetitions.
//
// A hook lives in its own directory under the hooks directory, described by
// a hook.json manifest. For every matching repetition the executable is
// started with a Request as JSON on stdin and must print a Response as JSON
// on stdout.
package hook

import (
	"encoding/json"

	"github.com/ayusman/formcheck/internal/exercise"
)

// Manifest describes a hook's metadata and the reps it wants.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Exercises restricts the hook to some exercises. Empty means all.
	Exercises []exercise.Exercise `json:"exercises,omitempty"`
	// FaultyOnly skips reps without a form fault.
	FaultyOnly bool            `json:"faultyOnly,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Request is sent to a hook for one repetition.
type Request struct {
	Event  string            `json:"event"`
	RunID  string            `json:"runId,omitempty"`
	Rep    exercise.RepEvent `json:"rep"`
	Config json.RawMessage   `json:"config,omitempty"`
}

// Response is the reply of a hook execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the hook subscribes to ev.
func (h *Hook) Wants(ev exercise.RepEvent) bool {
	if h.Manifest.FaultyOnly && !ev.Faulty() {
		return false
	}
	if len(h.Manifest.Exercises) == 0 {
		return true
	}
	for _, e := range h.Manifest.Exercises {
		if e == ev.Exercise {
			return true
		}
	}
	return false
}
