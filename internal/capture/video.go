// Package capture provides video file playback and frame annotation using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultWidth is the width frames are resized to before pose detection.
const DefaultWidth = 640

// ErrVideoNotOpen is returned when trying to read from a video that is not open.
var ErrVideoNotOpen = errors.New("video is not open")

// Video plays back a finite sequence of frames. ReadFrame returns io.EOF
// once every frame has been read.
type Video interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	FPS() float64
	IsOpen() bool
}

// videoFile decodes a video file with GoCV.
type videoFile struct {
	path    string
	width   int
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     float64
}

// NewVideo creates a Video over the file at path. Frames are resized to
// width pixels keeping their aspect ratio; a width of 0 or less keeps the
// decoded size.
func NewVideo(path string, width int) Video {
	return &videoFile{
		path:  path,
		width: width,
	}
}

// Open opens the video file for decoding.
func (v *videoFile) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.VideoCaptureFile(v.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", v.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video %s: %w", v.path, ErrVideoNotOpen)
	}

	v.capture = capture
	v.fps = capture.Get(gocv.VideoCaptureFPS)
	v.running = true

	return nil
}

// Close closes the video and releases resources.
func (v *videoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

// ReadFrame decodes the next frame.
// The caller is responsible for closing the returned Mat.
func (v *videoFile) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrVideoNotOpen
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}

	if v.width <= 0 || mat.Cols() == v.width {
		return &mat, nil
	}

	resized := gocv.NewMat()
	gocv.Resize(mat, &resized, ScaledSize(mat.Cols(), mat.Rows(), v.width), 0, 0, gocv.InterpolationArea)
	mat.Close()

	return &resized, nil
}

// FPS returns the frame rate reported by the container, or 0 if unknown.
func (v *videoFile) FPS() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.fps
}

// IsOpen returns true if the video is currently open.
func (v *videoFile) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.running
}

// ScaledSize returns the size of a cols x rows frame resized to width while
// keeping its aspect ratio.
func ScaledSize(cols, rows, width int) image.Point {
	if cols <= 0 {
		return image.Point{X: width}
	}
	ratio := float64(width) / float64(cols)
	return image.Point{X: width, Y: int(float64(rows) * ratio)}
}
