// Package hogfile reads and writes the frame-indexed binary feature files
// produced by OpenFace 2.2. Each frame is a self-describing little-endian
// record: three int32 values (columns, rows, channels), a float32 validity
// flag, and rows*cols*channels float32 feature values.
package hogfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// ErrCorruptFrame is returned when a frame header describes an impossible
// shape or the record is cut short.
var ErrCorruptFrame = errors.New("corrupt frame record")

// maxFrameValues bounds the total values a single frame may claim, guarding
// against allocating from a garbage header.
const maxFrameValues = 1 << 26

// Frame is one stored descriptor with its validity flag. A frame written for
// a failed detection carries Valid=false and zeroed features.
type Frame struct {
	Descriptor *fhog.Descriptor
	Valid      bool
}

// Writer appends descriptor frames to an output stream.
type Writer struct {
	w      *bufio.Writer
	frames int
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteFrame appends one descriptor record.
func (w *Writer) WriteFrame(d *fhog.Descriptor, valid bool) error {
	header := [3]int32{int32(d.Cols), int32(d.Rows), int32(d.Channels)}
	if err := binary.Write(w.w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write frame %d header: %w", w.frames, err)
	}

	flag := float32(0)
	if valid {
		flag = 1
	}
	if err := binary.Write(w.w, binary.LittleEndian, flag); err != nil {
		return fmt.Errorf("write frame %d flag: %w", w.frames, err)
	}

	if err := binary.Write(w.w, binary.LittleEndian, d.Data); err != nil {
		return fmt.Errorf("write frame %d data: %w", w.frames, err)
	}

	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Flush writes any buffered data to the underlying stream.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader iterates over the frames of a feature file.
type Reader struct {
	r     *bufio.Reader
	frame int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame reads the next frame record. It returns io.EOF at a clean end of
// stream and ErrCorruptFrame when a record is malformed or truncated.
func (r *Reader) ReadFrame() (*Frame, error) {
	var header [3]int32
	if err := binary.Read(r.r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame %d: %w: %v", r.frame, ErrCorruptFrame, err)
	}

	cols, rows, channels := int(header[0]), int(header[1]), int(header[2])
	if cols < 0 || rows < 0 || channels <= 0 ||
		rows*cols > maxFrameValues || rows*cols*channels > maxFrameValues {
		return nil, fmt.Errorf("frame %d: %w: shape (%d, %d, %d)",
			r.frame, ErrCorruptFrame, rows, cols, channels)
	}

	var flag float32
	if err := binary.Read(r.r, binary.LittleEndian, &flag); err != nil {
		return nil, fmt.Errorf("frame %d: %w: %v", r.frame, ErrCorruptFrame, err)
	}

	data := make([]float32, rows*cols*channels)
	if err := binary.Read(r.r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("frame %d: %w: %v", r.frame, ErrCorruptFrame, err)
	}

	r.frame++
	return &Frame{
		Descriptor: &fhog.Descriptor{Rows: rows, Cols: cols, Channels: channels, Data: data},
		Valid:      flag != 0,
	}, nil
}

// ReadAll reads every remaining frame.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
}
