package hogfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// extractFrames produces descriptors from deterministic random images.
func extractFrames(t *testing.T, count int) []*fhog.Descriptor {
	t.Helper()

	rng := rand.New(rand.NewSource(11))
	descriptors := make([]*fhog.Descriptor, count)
	for i := range descriptors {
		img := fhog.NewImage(96, 96)
		for j := range img.Pix {
			img.Pix[j] = uint8(rng.Intn(256))
		}

		d, err := fhog.Extract(img, 8)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		descriptors[i] = d
	}
	return descriptors
}

func TestWriteRead_RoundTrip(t *testing.T) {
	descriptors := extractFrames(t, 3)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i, d := range descriptors {
		// Mark the middle frame as a failed detection.
		if err := w.WriteFrame(d, i != 1); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if w.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", w.Frames())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	frames, err := NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}

	for i, f := range frames {
		want := descriptors[i]
		got := f.Descriptor
		if got.Rows != want.Rows || got.Cols != want.Cols || got.Channels != want.Channels {
			t.Errorf("frame %d: shape (%d, %d, %d), want (%d, %d, %d)",
				i, got.Rows, got.Cols, got.Channels, want.Rows, want.Cols, want.Channels)
		}
		for j := range want.Data {
			if got.Data[j] != want.Data[j] {
				t.Fatalf("frame %d: value %d = %f, want %f", i, j, got.Data[j], want.Data[j])
			}
		}
		if f.Valid != (i != 1) {
			t.Errorf("frame %d: Valid = %v", i, f.Valid)
		}
	}
}

func TestReader_EmptyStream(t *testing.T) {
	frames, err := NewReader(bytes.NewReader(nil)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll on empty stream failed: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("got %d frames from empty stream", len(frames))
	}
}

func TestReader_TruncatedRecord(t *testing.T) {
	descriptors := extractFrames(t, 1)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteFrame(descriptors[0], true); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// Drop the tail of the record.
	truncated := buf.Bytes()[:buf.Len()/2]

	_, err := NewReader(bytes.NewReader(truncated)).ReadFrame()
	if !errors.Is(err, ErrCorruptFrame) {
		t.Errorf("got %v, want ErrCorruptFrame", err)
	}
}

func TestReader_GarbageHeader(t *testing.T) {
	tests := []struct {
		name   string
		header [3]int32
	}{
		{"negative columns", [3]int32{-5, 10, 31}},
		{"negative rows", [3]int32{10, -1, 31}},
		{"zero channels", [3]int32{10, 10, 0}},
		{"huge cell grid", [3]int32{1 << 28, 1 << 28, 31}},
		// A tiny grid must not smuggle a giant allocation in through the
		// channel count.
		{"huge channels", [3]int32{1, 1, 100000000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			binary.Write(&buf, binary.LittleEndian, tt.header)
			binary.Write(&buf, binary.LittleEndian, float32(1))

			_, err := NewReader(&buf).ReadFrame()
			if !errors.Is(err, ErrCorruptFrame) {
				t.Errorf("got %v, want ErrCorruptFrame", err)
			}
		})
	}
}

func TestReader_StopsAtEOF(t *testing.T) {
	descriptors := extractFrames(t, 1)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteFrame(descriptors[0], true); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadFrame(); err != nil {
		t.Fatalf("first ReadFrame failed: %v", err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want io.EOF after last frame", err)
	}
}
