package exercise

import (
	"fmt"

	"github.com/ayusman/formcheck/internal/kinematics"
)

// Phase is one half-cycle of a repetition.
type Phase string

const (
	Up   Phase = "UP"
	Down Phase = "DOWN"
)

// Direction tells on which side of a threshold a transition fires.
type Direction int

const (
	Below Direction = iota
	Above
)

// Threshold is a strict phase transition boundary on the driving angle.
type Threshold struct {
	Direction Direction
	Degrees   float64
}

// Crossed reports whether angle is strictly past the threshold.
func (t Threshold) Crossed(angle float64) bool {
	if t.Direction == Above {
		return angle > t.Degrees
	}
	return angle < t.Degrees
}

// Extreme selects which end of a metric an accumulator keeps.
type Extreme int

const (
	Min Extreme = iota
	Max
)

// Metric is the per-frame value an accumulator tracks.
type Metric int

const (
	// DrivingAngle is the joint angle that governs phase transitions.
	DrivingAngle Metric = iota
	// ElbowDrift is the horizontal elbow displacement in torso lengths.
	ElbowDrift
)

// Accumulator is the policy of one peak tracker: which metric it follows,
// during which phase, which extreme it keeps and its worst-case reset value.
type Accumulator struct {
	Metric   Metric
	Phase    Phase
	Extreme  Extreme
	Sentinel float64
}

func (a Accumulator) fold(current, value float64) float64 {
	if a.Extreme == Max {
		if value > current {
			return value
		}
		return current
	}
	if value < current {
		return value
	}
	return current
}

// Config holds the constants of one exercise. A Machine built from it starts
// in InitialPhase, moves to the other phase when Enter is crossed and closes a
// repetition when Close is crossed on the way back.
type Config struct {
	Exercise     Exercise
	Joints       kinematics.Triple
	InitialPhase Phase
	Enter        Threshold
	Close        Threshold
	Primary      Accumulator
	Secondary    *Accumulator
	Classify     func(primary, secondary float64) Feedback
	// MetricLabel names the primary metric in summaries.
	MetricLabel string
}

// ActivePhase is the phase entered from InitialPhase.
func (c Config) ActivePhase() Phase {
	if c.InitialPhase == Up {
		return Down
	}
	return Up
}

// TracksDrift reports whether any accumulator follows elbow drift.
func (c Config) TracksDrift() bool {
	return c.Primary.Metric == ElbowDrift || (c.Secondary != nil && c.Secondary.Metric == ElbowDrift)
}

var configs = map[Exercise]Config{
	Squat: {
		Exercise:     Squat,
		Joints:       kinematics.Leg,
		InitialPhase: Up,
		Enter:        Threshold{Direction: Below, Degrees: 140},
		Close:        Threshold{Direction: Above, Degrees: 150},
		Primary:      Accumulator{Metric: DrivingAngle, Phase: Down, Extreme: Min, Sentinel: 180},
		Classify: func(knee, _ float64) Feedback {
			return ClassifySquat(knee)
		},
		MetricLabel: "Knee angles",
	},
	BicepCurl: {
		Exercise:     BicepCurl,
		Joints:       kinematics.Arm,
		InitialPhase: Down,
		Enter:        Threshold{Direction: Below, Degrees: 140},
		Close:        Threshold{Direction: Above, Degrees: 155},
		Primary:      Accumulator{Metric: DrivingAngle, Phase: Up, Extreme: Min, Sentinel: 180},
		Secondary:    &Accumulator{Metric: ElbowDrift, Phase: Up, Extreme: Max, Sentinel: 0},
		Classify:     ClassifyCurl,
		MetricLabel:  "Elbow angles",
	},
	OverheadPress: {
		Exercise:     OverheadPress,
		Joints:       kinematics.Arm,
		InitialPhase: Down,
		Enter:        Threshold{Direction: Above, Degrees: 150},
		Close:        Threshold{Direction: Below, Degrees: 100},
		Primary:      Accumulator{Metric: DrivingAngle, Phase: Up, Extreme: Max, Sentinel: 0},
		Secondary:    &Accumulator{Metric: DrivingAngle, Phase: Down, Extreme: Min, Sentinel: 180},
		Classify:     ClassifyPress,
		MetricLabel:  "Lockout angles",
	},
}

// ConfigFor returns the constants of a supported exercise.
func ConfigFor(e Exercise) (Config, error) {
	cfg, ok := configs[e]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownExercise, string(e))
	}
	return cfg, nil
}
