package kinematics

import "github.com/ayusman/formcheck/internal/pose"

// Triple names the three landmarks that define a joint angle, the vertex in the middle.
type Triple struct {
	Proximal pose.Joint
	Vertex   pose.Joint
	Distal   pose.Joint
}

var (
	// Leg is the hip-knee-ankle chain.
	Leg = Triple{Proximal: pose.Hip, Vertex: pose.Knee, Distal: pose.Ankle}
	// Arm is the shoulder-elbow-wrist chain.
	Arm = Triple{Proximal: pose.Shoulder, Vertex: pose.Elbow, Distal: pose.Wrist}
)

// Confidence sums the confidences of the triple's three landmarks on one side.
func (t Triple) Confidence(obs *pose.Observation, side pose.Side) float64 {
	return obs.Joint(side, t.Proximal).Confidence +
		obs.Joint(side, t.Vertex).Confidence +
		obs.Joint(side, t.Distal).Confidence
}

// Angle measures the triple's vertex angle on one side.
func (t Triple) Angle(obs *pose.Observation, side pose.Side) Reading {
	return Angle(
		obs.Joint(side, t.Proximal).Point,
		obs.Joint(side, t.Vertex).Point,
		obs.Joint(side, t.Distal).Point,
	)
}

// SelectSide picks the side whose triple has the higher summed confidence.
// Ties go to the left side. The choice is made per frame without smoothing.
func SelectSide(obs *pose.Observation, t Triple) pose.Side {
	if t.Confidence(obs, pose.Right) > t.Confidence(obs, pose.Left) {
		return pose.Right
	}
	return pose.Left
}
