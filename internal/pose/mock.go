package pose

import (
	"math"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	sequence []*Observation
	index    int
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetObservation makes every Detect call return obs.
func (m *MockDetector) SetObservation(obs *Observation) {
	m.sequence = nil
	if obs != nil {
		m.sequence = []*Observation{obs}
	}
	m.index = -1
}

// SetSequence makes consecutive Detect calls return the observations in order.
// Once the sequence is exhausted Detect returns nil.
func (m *MockDetector) SetSequence(seq []Observation) {
	m.sequence = make([]*Observation, len(seq))
	for i := range seq {
		m.sequence[i] = &seq[i]
	}
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured observation or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Observation, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) == 0 {
		return nil, nil
	}
	// index -1 marks a fixed observation
	if m.index < 0 {
		return m.sequence[0], nil
	}
	if m.index >= len(m.sequence) {
		return nil, nil
	}
	obs := m.sequence[m.index]
	m.index++
	return obs, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// rotate turns v counter-clockwise by deg degrees.
func rotate(v Point, deg float64) Point {
	rad := deg * math.Pi / 180.0
	sin, cos := math.Sin(rad), math.Cos(rad)
	return Point{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

func offset(origin, dir Point, length float64) Point {
	return Point{X: origin.X + dir.X*length, Y: origin.Y + dir.Y*length}
}

// SquatLandmarks returns a side-on body pose whose left knee is bent to kneeDeg
// degrees. The right side mirrors the left with lower confidence, so confidence
// based side selection picks the left leg.
func SquatLandmarks(kneeDeg float64) Observation {
	var obs Observation

	place := func(side Side, x, conf float64) {
		knee := Point{X: x, Y: 340}
		hip := Point{X: x, Y: 240}
		ankle := offset(knee, rotate(Point{X: 0, Y: -1}, kneeDeg), 100)
		shoulder := Point{X: x, Y: 90}

		obs.SetJoint(side, Shoulder, Keypoint{Point: shoulder, Confidence: conf})
		obs.SetJoint(side, Hip, Keypoint{Point: hip, Confidence: conf})
		obs.SetJoint(side, Knee, Keypoint{Point: knee, Confidence: conf})
		obs.SetJoint(side, Ankle, Keypoint{Point: ankle, Confidence: conf})
	}

	place(Left, 320, 0.92)
	place(Right, 330, 0.55)

	obs.Keypoints[Nose] = Keypoint{Point: Point{X: 322, Y: 60}, Confidence: 0.9}
	return obs
}

// ArmLandmarks returns an upper-body pose whose left elbow is bent to elbowDeg
// degrees, with the elbow displaced horizontally from the shoulder by drift
// torso lengths. The right arm hangs straight with lower confidence.
func ArmLandmarks(elbowDeg, drift float64) Observation {
	var obs Observation

	const torso = 200.0

	shoulder := Point{X: 300, Y: 200}
	hip := Point{X: 300, Y: 200 + torso}
	elbow := Point{X: shoulder.X + drift*torso, Y: 300}

	toShoulder := Point{X: shoulder.X - elbow.X, Y: shoulder.Y - elbow.Y}
	norm := math.Hypot(toShoulder.X, toShoulder.Y)
	toShoulder = Point{X: toShoulder.X / norm, Y: toShoulder.Y / norm}
	wrist := offset(elbow, rotate(toShoulder, elbowDeg), 80)

	obs.SetJoint(Left, Shoulder, Keypoint{Point: shoulder, Confidence: 0.95})
	obs.SetJoint(Left, Elbow, Keypoint{Point: elbow, Confidence: 0.9})
	obs.SetJoint(Left, Wrist, Keypoint{Point: wrist, Confidence: 0.88})
	obs.SetJoint(Left, Hip, Keypoint{Point: hip, Confidence: 0.9})

	obs.SetJoint(Right, Shoulder, Keypoint{Point: Point{X: 400, Y: 200}, Confidence: 0.5})
	obs.SetJoint(Right, Elbow, Keypoint{Point: Point{X: 400, Y: 300}, Confidence: 0.45})
	obs.SetJoint(Right, Wrist, Keypoint{Point: Point{X: 400, Y: 380}, Confidence: 0.4})
	obs.SetJoint(Right, Hip, Keypoint{Point: Point{X: 400, Y: 400}, Confidence: 0.5})

	return obs
}
