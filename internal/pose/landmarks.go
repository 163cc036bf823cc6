// Package pose provides body keypoint types, pose detection interfaces and frame sources.
package pose

import "fmt"

// Body keypoint indices following the COCO convention used by YOLO pose models.
const (
	Nose          = 0
	LeftEye       = 1
	RightEye      = 2
	LeftEar       = 3
	RightEar      = 4
	LeftShoulder  = 5
	RightShoulder = 6
	LeftElbow     = 7
	RightElbow    = 8
	LeftWrist     = 9
	RightWrist    = 10
	LeftHip       = 11
	RightHip      = 12
	LeftKnee      = 13
	RightKnee     = 14
	LeftAnkle     = 15
	RightAnkle    = 16
	NumKeypoints  = 17
)

// Point is a 2D position in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsOrigin reports whether the point sits exactly at (0, 0), which the upstream
// detector uses for keypoints it could not find.
func (p Point) IsOrigin() bool {
	return p.X == 0 && p.Y == 0
}

// Keypoint is a detected landmark position with its confidence in [0, 1].
type Keypoint struct {
	Point
	Confidence float64 `json:"confidence"`
}

// Side identifies the left or right half of the body.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Joint is an anatomical landmark that exists on both sides of the body.
type Joint int

const (
	Shoulder Joint = iota
	Elbow
	Wrist
	Hip
	Knee
	Ankle
)

var jointNames = [...]string{"shoulder", "elbow", "wrist", "hip", "knee", "ankle"}

func (j Joint) String() string {
	if j < 0 || int(j) >= len(jointNames) {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// keypointIndex maps a joint to its left and right keypoint index.
var keypointIndex = map[Joint][2]int{
	Shoulder: {LeftShoulder, RightShoulder},
	Elbow:    {LeftElbow, RightElbow},
	Wrist:    {LeftWrist, RightWrist},
	Hip:      {LeftHip, RightHip},
	Knee:     {LeftKnee, RightKnee},
	Ankle:    {LeftAnkle, RightAnkle},
}

// Index returns the keypoint index of the joint on the given side.
func Index(side Side, j Joint) int {
	idx := keypointIndex[j]
	if side == Right {
		return idx[1]
	}
	return idx[0]
}

// Observation is the set of keypoints detected for one person in one frame.
// Keypoints that were not found are (0, 0, 0).
type Observation struct {
	Keypoints [NumKeypoints]Keypoint `json:"keypoints"`
}

// Joint returns the keypoint of a joint on the given side.
func (o *Observation) Joint(side Side, j Joint) Keypoint {
	return o.Keypoints[Index(side, j)]
}

// SetJoint stores the keypoint of a joint on the given side.
func (o *Observation) SetJoint(side Side, j Joint, kp Keypoint) {
	o.Keypoints[Index(side, j)] = kp
}

// Empty reports whether no keypoint in the observation was detected.
func (o *Observation) Empty() bool {
	for _, kp := range o.Keypoints {
		if !kp.IsOrigin() || kp.Confidence > 0 {
			return false
		}
	}
	return true
}
