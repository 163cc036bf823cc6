package app

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

// DetectingSource turns decoded video frames into observations.
type DetectingSource struct {
	video    capture.Video
	detector pose.Detector
	index    int
	last     *gocv.Mat
}

// NewDetectingSource opens video and pairs it with detector. The detector
// stays owned by the caller.
func NewDetectingSource(video capture.Video, detector pose.Detector) (*DetectingSource, error) {
	if !video.IsOpen() {
		if err := video.Open(); err != nil {
			return nil, err
		}
	}
	return &DetectingSource{video: video, detector: detector}, nil
}

// Next reads and detects one frame.
func (s *DetectingSource) Next(ctx context.Context) (pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pose.Frame{}, err
	}

	mat, err := s.video.ReadFrame()
	if err != nil {
		return pose.Frame{}, err
	}
	s.replace(mat)

	index := s.index
	s.index++

	obs, err := s.detector.Detect(mat)
	if err != nil {
		return pose.Frame{}, fmt.Errorf("detect frame %d: %w", index, err)
	}
	return pose.Frame{Index: index, Observation: obs}, nil
}

// Image returns the frame decoded by the last call to Next. It is valid until
// the next call to Next or Close.
func (s *DetectingSource) Image() *gocv.Mat {
	return s.last
}

// FPS returns the frame rate of the underlying video.
func (s *DetectingSource) FPS() float64 {
	return s.video.FPS()
}

// Close releases the last frame and closes the video.
func (s *DetectingSource) Close() error {
	s.replace(nil)
	return s.video.Close()
}

func (s *DetectingSource) replace(mat *gocv.Mat) {
	if s.last != nil {
		s.last.Close()
	}
	s.last = mat
}

// Annotator draws the skeleton and live counters on every frame and hands the
// result to a recorder.
type Annotator struct {
	Source        *DetectingSource
	Recorder      *capture.Recorder
	MinConfidence float64
	err           error
}

// OnFrame is a FrameFunc. The first write error stops further recording and
// is reported by Err.
func (a *Annotator) OnFrame(f pose.Frame, st exercise.State, out exercise.Outcome) {
	img := a.Source.Image()
	if a.err != nil || img == nil {
		return
	}

	overlay := capture.Overlay{Angle: -1, Reps: st.RepCount, Phase: string(st.Phase)}
	if angle, ok := out.Angle.Degrees(); ok {
		overlay.Angle = angle
	}
	capture.Annotate(img, f.Observation, overlay, a.MinConfidence)
	a.err = a.Recorder.Write(*img)
}

// Err returns the first recording error.
func (a *Annotator) Err() error {
	return a.err
}
