package frames

import (
	"io"
	"sync"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// MockSource plays back in-memory frames for testing.
type MockSource struct {
	frames  []*fhog.Image
	loop    bool
	mu      sync.Mutex
	index   int
	running bool
}

// NewMockSource creates a source over pre-built frames. When loop is true
// the sequence repeats instead of ending.
func NewMockSource(frames []*fhog.Image, loop bool) *MockSource {
	return &MockSource{frames: frames, loop: loop}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) Next() (*fhog.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if len(s.frames) == 0 {
		return nil, io.EOF
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, io.EOF
		}
		s.index = 0
	}

	frame := s.frames[s.index]
	s.index++
	return frame, nil
}
