package exercise

import (
	"github.com/ayusman/formcheck/internal/kinematics"
	"github.com/ayusman/formcheck/internal/pose"
)

// State is a snapshot of a machine's phase, rep count and peak accumulators.
type State struct {
	Phase     Phase
	RepCount  int
	Primary   float64
	Secondary float64
}

// Sample is the per-frame input of a Machine.
type Sample struct {
	Frame int
	Side  pose.Side
	Angle kinematics.Reading
	// Drift is only meaningful when DriftOK is set.
	Drift   float64
	DriftOK bool
}

// Outcome reports what a frame did to the machine.
type Outcome struct {
	// Angle is the driving angle of the frame.
	Angle kinematics.Reading
	// Skipped is set when the driving angle was undetected.
	Skipped bool
	// Closed is set when the frame completed a repetition; Event describes it.
	Closed bool
	Event  RepEvent
}

// Machine is a two-phase hysteresis state machine for one exercise.
// It is not safe for concurrent use.
type Machine struct {
	cfg   Config
	state State
}

// NewMachine creates a machine for a supported exercise.
func NewMachine(e Exercise) (*Machine, error) {
	cfg, err := ConfigFor(e)
	if err != nil {
		return nil, err
	}
	return NewMachineWithConfig(cfg), nil
}

// NewMachineWithConfig creates a machine from explicit constants.
func NewMachineWithConfig(cfg Config) *Machine {
	m := &Machine{cfg: cfg}
	m.Reset()
	return m
}

// Reset returns the machine to its initial phase with a zero rep count.
func (m *Machine) Reset() {
	m.state = State{Phase: m.cfg.InitialPhase}
	m.resetAccumulators()
}

// Config returns the constants the machine runs on.
func (m *Machine) Config() Config {
	return m.cfg
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	return m.state
}

// Sample extracts the machine's input from one observation: the side is
// chosen by landmark confidence, then the driving angle and, if tracked, the
// elbow drift are measured on that side.
func (m *Machine) Sample(frame int, obs *pose.Observation) Sample {
	if obs == nil {
		return Sample{Frame: frame, Angle: kinematics.Undetected}
	}

	side := kinematics.SelectSide(obs, m.cfg.Joints)
	s := Sample{
		Frame: frame,
		Side:  side,
		Angle: m.cfg.Joints.Angle(obs, side),
	}
	if m.cfg.TracksDrift() {
		s.Drift, s.DriftOK = kinematics.ElbowDrift(obs, side)
	}
	return s
}

// Step feeds one frame to the machine.
func (m *Machine) Step(f pose.Frame) Outcome {
	return m.Observe(m.Sample(f.Index, f.Observation))
}

// Observe feeds one sample to the machine. Undetected samples leave the state
// untouched.
func (m *Machine) Observe(s Sample) Outcome {
	angle, ok := s.Angle.Degrees()
	if !ok {
		return Outcome{Angle: s.Angle, Skipped: true}
	}

	m.accumulate(m.state.Phase, angle, s)

	active := m.cfg.ActivePhase()
	switch m.state.Phase {
	case m.cfg.InitialPhase:
		if m.cfg.Enter.Crossed(angle) {
			m.state.Phase = active
			m.seed(active, angle, s)
		}
	case active:
		if m.cfg.Close.Crossed(angle) {
			ev := m.closeRep(s)
			m.state.Phase = m.cfg.InitialPhase
			return Outcome{Angle: s.Angle, Closed: true, Event: ev}
		}
	}

	return Outcome{Angle: s.Angle}
}

func (m *Machine) closeRep(s Sample) RepEvent {
	m.state.RepCount++

	fb := m.cfg.Classify(m.state.Primary, m.state.Secondary)
	ev := RepEvent{
		Exercise:        m.cfg.Exercise,
		RepIndex:        m.state.RepCount,
		PrimaryMetric:   m.state.Primary,
		SecondaryMetric: m.state.Secondary,
		ErrorTag:        fb.Tag,
		Feedback:        fb.Text,
		Side:            s.Side,
		Frame:           s.Frame,
	}

	m.resetAccumulators()
	return ev
}

func (m *Machine) resetAccumulators() {
	m.state.Primary = m.cfg.Primary.Sentinel
	m.state.Secondary = 0
	if m.cfg.Secondary != nil {
		m.state.Secondary = m.cfg.Secondary.Sentinel
	}
}

// accumulate folds the sample into the accumulators tracked during phase.
func (m *Machine) accumulate(phase Phase, angle float64, s Sample) {
	if v, ok := metricValue(m.cfg.Primary, angle, s); ok && m.cfg.Primary.Phase == phase {
		m.state.Primary = m.cfg.Primary.fold(m.state.Primary, v)
	}
	if acc := m.cfg.Secondary; acc != nil && acc.Phase == phase {
		if v, ok := metricValue(*acc, angle, s); ok {
			m.state.Secondary = acc.fold(m.state.Secondary, v)
		}
	}
}

// seed starts the accumulators of the active phase from the sample that entered it.
// The initial phase is never seeded: after a close its accumulators keep their
// sentinels until the next frame.
func (m *Machine) seed(phase Phase, angle float64, s Sample) {
	if m.cfg.Primary.Phase == phase {
		if v, ok := metricValue(m.cfg.Primary, angle, s); ok {
			m.state.Primary = v
		}
	}
	if acc := m.cfg.Secondary; acc != nil && acc.Phase == phase {
		if v, ok := metricValue(*acc, angle, s); ok {
			m.state.Secondary = v
		}
	}
}

func metricValue(acc Accumulator, angle float64, s Sample) (float64, bool) {
	if acc.Metric == ElbowDrift {
		return s.Drift, s.DriftOK
	}
	return angle, true
}
