package capture

import (
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockVideo plays back pre-recorded frames for testing
type MockVideo struct {
	frames  []*gocv.Mat
	index   int
	mu      sync.Mutex
	running bool
	fps     float64
}

func NewMockVideo(frames []*gocv.Mat, fps float64) *MockVideo {
	return &MockVideo{
		frames: frames,
		fps:    fps,
	}
}

func (v *MockVideo) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.running = true
	v.index = 0
	return nil
}

func (v *MockVideo) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.running = false
	return nil
}

func (v *MockVideo) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running {
		return nil, ErrVideoNotOpen
	}

	if v.index >= len(v.frames) {
		return nil, io.EOF
	}

	// Clone the frame so the original isn't modified
	frame := v.frames[v.index].Clone()
	v.index++

	return &frame, nil
}

func (v *MockVideo) FPS() float64 { return v.fps }
func (v *MockVideo) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

// Remaining returns the number of frames not read yet
func (v *MockVideo) Remaining() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.frames) - v.index
}
