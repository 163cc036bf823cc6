package kinematics

import (
	"math"

	"github.com/ayusman/formcheck/internal/pose"
)

// minTorsoLength guards the drift ratio against a collapsed torso.
const minTorsoLength = 1e-9

// ElbowDrift measures how far the elbow has wandered horizontally from the
// shoulder, in torso lengths: |shoulderX - elbowX| / |shoulder - hip|.
// ok is false when the torso length is zero or a needed landmark is missing.
func ElbowDrift(obs *pose.Observation, side pose.Side) (drift float64, ok bool) {
	shoulder := obs.Joint(side, pose.Shoulder).Point
	elbow := obs.Joint(side, pose.Elbow).Point
	hip := obs.Joint(side, pose.Hip).Point

	if shoulder.IsOrigin() || elbow.IsOrigin() || hip.IsOrigin() {
		return 0, false
	}

	torso := math.Hypot(shoulder.X-hip.X, shoulder.Y-hip.Y)
	if torso < minTorsoLength {
		return 0, false
	}

	return math.Abs(shoulder.X-elbow.X) / torso, true
}
