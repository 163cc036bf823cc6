package capture

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/pose"
)

// Overlay is the text drawn on an annotated frame.
type Overlay struct {
	// Angle is the live driving angle; negative hides it.
	Angle float64
	Reps  int
	Phase string
}

var (
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	jointColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	textColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// bones are the keypoint pairs joined when drawing a skeleton.
var bones = [][2]int{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftElbow}, {pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow}, {pose.RightElbow, pose.RightWrist},
	{pose.LeftShoulder, pose.LeftHip}, {pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee}, {pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee}, {pose.RightKnee, pose.RightAnkle},
}

// Annotate draws the skeleton of obs and the overlay text onto img.
// Keypoints below minConfidence or at the origin are not drawn.
func Annotate(img *gocv.Mat, obs *pose.Observation, o Overlay, minConfidence float64) {
	if obs != nil {
		visible := func(i int) bool {
			kp := obs.Keypoints[i]
			return kp.Confidence >= minConfidence && !kp.IsOrigin()
		}

		for _, b := range bones {
			if visible(b[0]) && visible(b[1]) {
				gocv.Line(img, toImagePoint(obs.Keypoints[b[0]].Point), toImagePoint(obs.Keypoints[b[1]].Point), boneColor, 2)
			}
		}
		for i := range obs.Keypoints {
			if visible(i) {
				gocv.Circle(img, toImagePoint(obs.Keypoints[i].Point), 4, jointColor, -1)
			}
		}
	}

	gocv.PutText(img, fmt.Sprintf("REPS: %d", o.Reps), image.Pt(30, 50), gocv.FontHersheySimplex, 1.0, textColor, 2)
	if o.Phase != "" {
		gocv.PutText(img, o.Phase, image.Pt(30, 90), gocv.FontHersheySimplex, 0.8, textColor, 2)
	}
	if o.Angle >= 0 {
		gocv.PutText(img, fmt.Sprintf("Live Angle: %d", int(o.Angle)), image.Pt(30, 130), gocv.FontHersheySimplex, 0.8, textColor, 2)
	}
}

func toImagePoint(p pose.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

// Recorder writes annotated frames to a video file. The file is created on
// the first frame, using its size.
type Recorder struct {
	path   string
	fps    float64
	writer *gocv.VideoWriter
	mu     sync.Mutex
	frames int
}

// NewRecorder creates a Recorder writing MJPG to path at fps frames per second.
func NewRecorder(path string, fps float64) *Recorder {
	if fps <= 0 {
		fps = 30
	}
	return &Recorder{path: path, fps: fps}
}

// Write appends img to the output video.
func (r *Recorder) Write(img gocv.Mat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		w, err := gocv.VideoWriterFile(r.path, "MJPG", r.fps, img.Cols(), img.Rows(), true)
		if err != nil {
			return fmt.Errorf("create annotated video: %w", err)
		}
		r.writer = w
	}

	if err := r.writer.Write(img); err != nil {
		return fmt.Errorf("write annotated frame: %w", err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the output file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	return err
}
