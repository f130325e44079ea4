package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/johnwilsoniv/gofhog/fhog"
	"github.com/johnwilsoniv/gofhog/hogfile"
	"github.com/johnwilsoniv/gofhog/internal/catalog"
	"github.com/johnwilsoniv/gofhog/internal/frames"
)

func main() {
	var (
		videoPath = flag.String("video", "", "video file to extract from")
		cameraID  = flag.Int("camera", -1, "camera device index to extract from")
		imagesDir = flag.String("images", "", "directory of still images, processed in name order")
		outPath   = flag.String("out", "features.hog", "output feature file")
		cellSize  = flag.Int("cell", 8, "descriptor cell size in pixels")
		resize    = flag.Int("resize", 0, "resize still images to NxN before extraction (0 = off)")
		dbPath    = flag.String("db", defaultDBPath(), "run catalog database path (empty disables)")
	)
	flag.Parse()

	fmt.Println("gofhog - FHOG feature extraction")

	source, input, err := buildSource(*videoPath, *cameraID, *imagesDir, *resize)
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	var runs *catalog.RunRepository
	var run *catalog.Run
	if *dbPath != "" {
		cat, err := catalog.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open run catalog: %v", err)
		}
		defer cat.Close()

		runs = cat.Runs()
		run = &catalog.Run{
			Kind:     catalog.RunKindExtract,
			Input:    input,
			Output:   *outPath,
			CellSize: *cellSize,
		}
		if err := runs.Create(run); err != nil {
			log.Fatalf("Failed to record run: %v", err)
		}
	}

	if err := source.Open(); err != nil {
		log.Fatalf("Failed to open %s: %v", input, err)
	}
	defer source.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()

	writer := hogfile.NewWriter(out)
	var shape *fhog.Descriptor

	for {
		img, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Failed reading frame %d: %v", writer.Frames(), err)
		}

		d, err := fhog.Extract(img, *cellSize)
		if err != nil {
			log.Fatalf("Extraction failed on frame %d: %v", writer.Frames(), err)
		}
		if d.Empty() {
			log.Fatalf("Frame %d (%dx%d) is too small for cell size %d",
				writer.Frames(), img.Width, img.Height, *cellSize)
		}

		if shape == nil {
			shape = d
		} else if d.Rows != shape.Rows || d.Cols != shape.Cols {
			log.Printf("Warning: frame %d shape (%d, %d) differs from first frame (%d, %d)",
				writer.Frames(), d.Rows, d.Cols, shape.Rows, shape.Cols)
		}

		if err := writer.WriteFrame(d, true); err != nil {
			log.Fatalf("Failed writing frame: %v", err)
		}

		if writer.Frames()%100 == 0 {
			log.Printf("Processed %d frames", writer.Frames())
		}
	}

	if err := writer.Flush(); err != nil {
		log.Fatalf("Failed flushing output: %v", err)
	}

	if shape == nil {
		log.Fatalf("No frames found in %s", input)
	}

	fmt.Printf("Wrote %d frames of shape (%d, %d, %d) to %s\n",
		writer.Frames(), shape.Rows, shape.Cols, shape.Channels, *outPath)

	if runs != nil {
		run.FrameCount = writer.Frames()
		run.Rows = shape.Rows
		run.Cols = shape.Cols
		run.Channels = shape.Channels
		if err := runs.Finish(run); err != nil {
			log.Printf("Warning: failed to finish run record: %v", err)
		}
	}
}

// buildSource selects the frame source from the mutually exclusive input
// flags and returns it with a human-readable input name.
func buildSource(videoPath string, cameraID int, imagesDir string, resize int) (frames.Source, string, error) {
	set := 0
	if videoPath != "" {
		set++
	}
	if cameraID >= 0 {
		set++
	}
	if imagesDir != "" {
		set++
	}
	if set != 1 {
		return nil, "", errors.New("exactly one of -video, -camera, or -images is required")
	}

	switch {
	case videoPath != "":
		return frames.NewVideoSource(videoPath), videoPath, nil
	case cameraID >= 0:
		return frames.NewCameraSource(cameraID), fmt.Sprintf("camera:%d", cameraID), nil
	default:
		paths, err := listImages(imagesDir)
		if err != nil {
			return nil, "", err
		}
		src := frames.NewImageSource(paths)
		src.SetResize(resize)
		return src, imagesDir, nil
	}
}

// listImages returns the image files of a directory sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	return paths, nil
}

// defaultDBPath places the run catalog under the user's home directory.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	dbDir := filepath.Join(homeDir, ".gofhog")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dbDir, "runs.db")
}
