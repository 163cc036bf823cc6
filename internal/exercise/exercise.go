// Package exercise segments a stream of joint angles into repetitions and
// classifies the form of each completed repetition.
package exercise

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownExercise is returned when an exercise type is not supported.
var ErrUnknownExercise = errors.New("unknown exercise")

// Exercise identifies a supported movement.
type Exercise string

const (
	Squat         Exercise = "squat"
	BicepCurl     Exercise = "bicep_curl"
	OverheadPress Exercise = "overhead_press"
)

// All lists the supported exercises.
func All() []Exercise {
	return []Exercise{Squat, BicepCurl, OverheadPress}
}

var labels = map[Exercise]string{
	Squat:         "Squat",
	BicepCurl:     "Bicep Curl",
	OverheadPress: "Overhead Press",
}

// Label returns the human readable exercise name.
func (e Exercise) Label() string {
	if l, ok := labels[e]; ok {
		return l
	}
	return string(e)
}

// Valid reports whether e is a supported exercise.
func (e Exercise) Valid() bool {
	_, ok := labels[e]
	return ok
}

// Parse resolves an exercise from its identifier, label or a short alias.
func Parse(name string) (Exercise, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	switch key {
	case "squat", "squats":
		return Squat, nil
	case "bicep_curl", "biceps_curl", "curl", "curls":
		return BicepCurl, nil
	case "overhead_press", "press", "ohp", "shoulder_press":
		return OverheadPress, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExercise, name)
	}
}
