package frames

import (
	"fmt"
	"io"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// ImageSource reads an ordered list of still-image files, the layout produced
// by aligned-face export (one image per frame). Images are decoded with
// EXIF auto-orientation and optionally resized to a fixed frame size.
type ImageSource struct {
	paths  []string
	resize int // square target edge; 0 keeps the source size

	mu      sync.Mutex
	index   int
	running bool
}

// NewImageSource creates a source over image files in the given order.
func NewImageSource(paths []string) *ImageSource {
	return &ImageSource{paths: paths}
}

// SetResize makes the source resize every frame to size x size pixels,
// matching the aligned-face geometry of the reference pipeline. Values less
// than or equal to 0 disable resizing.
func (s *ImageSource) SetResize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size <= 0 {
		s.resize = 0
		return
	}
	s.resize = size
}

// Open resets the source to the first image.
func (s *ImageSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = 0
	s.running = true
	return nil
}

// Close stops the source. Remaining images are not read.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	return nil
}

// Next decodes the next image in the list, returning io.EOF past the end.
func (s *ImageSource) Next() (*fhog.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if s.index >= len(s.paths) {
		return nil, io.EOF
	}

	path := s.paths[s.index]
	s.index++

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if s.resize > 0 {
		img = imaging.Resize(img, s.resize, s.resize, imaging.Lanczos)
	}

	return fhog.FromImage(img), nil
}
