// Package frames turns videos, cameras, and still-image sequences into the
// RGB buffers consumed by the extractor, using GoCV (OpenCV) for the video
// path.
package frames

import (
	"errors"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("frame source is not open")

// Source yields successive frames of an input stream. Next returns io.EOF
// once the stream is exhausted.
type Source interface {
	Open() error
	Close() error
	Next() (*fhog.Image, error)
}

// VideoSource reads frames from a video file or a camera device using GoCV.
type VideoSource struct {
	input   interface{} // device index (int) or file path (string)
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewVideoSource creates a source over a video file.
func NewVideoSource(path string) *VideoSource {
	return &VideoSource{input: path}
}

// NewCameraSource creates a source over a camera device.
func NewCameraSource(deviceID int) *VideoSource {
	return &VideoSource{input: deviceID}
}

// Open opens the underlying capture device.
func (s *VideoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.input)
	if err != nil {
		return err
	}

	s.capture = capture
	s.running = true
	return nil
}

// Close closes the capture device and releases resources.
func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false
	return err
}

// Next reads and converts the next frame. End of the video surfaces as io.EOF.
func (s *VideoSource) Next() (*fhog.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.capture.Read(&mat); !ok {
		return nil, io.EOF
	}
	if mat.Empty() {
		return nil, io.EOF
	}

	return MatToImage(&mat)
}
