package exercise

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/pose"
)

// Session drives one machine over a frame stream and hands every closed
// repetition to a sink.
type Session struct {
	machine *Machine
	sink    Sink
	frames  int
	skipped int
}

// NewSession creates a session for an exercise. It fails before any frame is
// processed if the exercise is not supported.
func NewSession(e Exercise, sink Sink) (*Session, error) {
	m, err := NewMachine(e)
	if err != nil {
		return nil, err
	}
	return &Session{machine: m, sink: sink}, nil
}

// Process feeds one frame. A frame that closes a repetition is recorded before
// Process returns; a sink failure is returned as an error.
func (s *Session) Process(ctx context.Context, f pose.Frame) (Outcome, error) {
	s.frames++

	out := s.machine.Step(f)
	if out.Skipped {
		s.skipped++
		return out, nil
	}

	if !out.Closed {
		return out, nil
	}

	log.WithFields(log.Fields{
		"exercise": out.Event.Exercise,
		"rep":      out.Event.RepIndex,
		"primary":  fmt.Sprintf("%.1f", out.Event.PrimaryMetric),
		"tag":      out.Event.ErrorTag,
		"frame":    out.Event.Frame,
	}).Debug("rep closed")

	if s.sink != nil {
		if err := s.sink.Record(ctx, out.Event); err != nil {
			return out, fmt.Errorf("record rep %d: %w", out.Event.RepIndex, err)
		}
	}
	return out, nil
}

// Machine returns the session's state machine.
func (s *Session) Machine() *Machine {
	return s.machine
}

// Frames returns the number of frames processed.
func (s *Session) Frames() int {
	return s.frames
}

// Skipped returns the number of frames without a detected driving angle.
func (s *Session) Skipped() int {
	return s.skipped
}
