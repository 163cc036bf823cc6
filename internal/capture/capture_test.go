package capture

import (
	"errors"
	"image"
	"io"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/pose"
)

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name       string
		cols, rows int
		width      int
		want       image.Point
	}{
		{"landscape 1280x720", 1280, 720, 640, image.Point{X: 640, Y: 360}},
		{"portrait 1080x1920", 1080, 1920, 640, image.Point{X: 640, Y: 1137}},
		{"already at width", 640, 480, 640, image.Point{X: 640, Y: 480}},
		{"upscale", 320, 240, 640, image.Point{X: 640, Y: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaledSize(tt.cols, tt.rows, tt.width); got != tt.want {
				t.Errorf("ScaledSize(%d, %d, %d) = %v, want %v", tt.cols, tt.rows, tt.width, got, tt.want)
			}
		})
	}
}

func TestNewVideo(t *testing.T) {
	v := NewVideo("missing.mp4", DefaultWidth)

	if v == nil {
		t.Fatal("NewVideo returned nil")
	}
	if v.IsOpen() {
		t.Error("video should not be open initially")
	}
	if got := v.FPS(); got != 0 {
		t.Errorf("FPS() = %v, want 0 before open", got)
	}
}

func TestVideo_ReadFrame_NotOpened(t *testing.T) {
	v := NewVideo("missing.mp4", DefaultWidth)

	if _, err := v.ReadFrame(); !errors.Is(err, ErrVideoNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrVideoNotOpen", err)
	}
}

func TestVideo_Close_NotOpened(t *testing.T) {
	v := NewVideo("missing.mp4", DefaultWidth)

	if err := v.Close(); err != nil {
		t.Errorf("Close() on not opened video should return nil, got: %v", err)
	}
}

func TestVideo_Open_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	v := NewVideo(filepath.Join(t.TempDir(), "missing.mp4"), DefaultWidth)
	if err := v.Open(); err == nil {
		v.Close()
		t.Fatal("Open() should fail for a missing file")
	}
	if v.IsOpen() {
		t.Error("video should not be open after a failed Open()")
	}
}

func TestVideo_RecordAndPlayback_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	path := filepath.Join(t.TempDir(), "clip.avi")
	rec := NewRecorder(path, 10)
	for i := 0; i < 3; i++ {
		frame := gocv.NewMatWithSize(360, 1280, gocv.MatTypeCV8UC3)
		if err := rec.Write(frame); err != nil {
			frame.Close()
			t.Skipf("skipping test - video writer not available: %v", err)
		}
		frame.Close()
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	v := NewVideo(path, DefaultWidth)
	if err := v.Open(); err != nil {
		t.Skipf("skipping test - video decoder not available: %v", err)
	}
	defer v.Close()

	var frames int
	for {
		mat, err := v.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame() failed: %v", err)
		}
		if mat.Cols() != DefaultWidth || mat.Rows() != 180 {
			t.Errorf("frame size = %dx%d, want %dx180", mat.Cols(), mat.Rows(), DefaultWidth)
		}
		mat.Close()
		frames++
	}
	if frames != 3 {
		t.Errorf("read %d frames, want 3", frames)
	}
}

func TestMockVideo_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	v := NewMockVideo([]*gocv.Mat{&frame1, &frame2}, 30)

	if _, err := v.ReadFrame(); !errors.Is(err, ErrVideoNotOpen) {
		t.Errorf("ReadFrame() before Open() error = %v, want ErrVideoNotOpen", err)
	}

	if err := v.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer v.Close()

	for i := 0; i < 2; i++ {
		f, err := v.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	if v.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", v.Remaining())
	}
	if _, err := v.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF after all frames consumed, got %v", err)
	}
	if v.FPS() != 30 {
		t.Errorf("FPS() = %v, want 30", v.FPS())
	}
}

func TestAnnotate(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	obs := pose.SquatLandmarks(100)
	Annotate(&img, &obs, Overlay{Angle: 100, Reps: 3, Phase: "DOWN"}, 0.5)

	gray := img.Reshape(1, 0)
	defer gray.Close()
	if gocv.CountNonZero(gray) == 0 {
		t.Error("annotation should draw on the frame")
	}

	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer blank.Close()
	Annotate(&blank, nil, Overlay{Angle: -1}, 0.5)
	blankGray := blank.Reshape(1, 0)
	defer blankGray.Close()
	if gocv.CountNonZero(blankGray) == 0 {
		t.Error("rep counter should be drawn without an observation")
	}
}

func TestRecorder_CloseWithoutFrames(t *testing.T) {
	rec := NewRecorder(filepath.Join(t.TempDir(), "empty.avi"), 0)
	if err := rec.Close(); err != nil {
		t.Errorf("Close() without frames should return nil, got %v", err)
	}
	if rec.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", rec.Frames())
	}
}
