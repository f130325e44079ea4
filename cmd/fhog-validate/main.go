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
	"github.com/johnwilsoniv/gofhog/internal/compare"
	"github.com/johnwilsoniv/gofhog/internal/frames"
)

func main() {
	var (
		videoPath = flag.String("video", "", "video file to re-extract from")
		imagesDir = flag.String("images", "", "directory of aligned still images, processed in name order")
		refPath   = flag.String("ref", "", "reference .hog file to compare against")
		cellSize  = flag.Int("cell", 8, "descriptor cell size in pixels")
		resize    = flag.Int("resize", 0, "resize still images to NxN before extraction (0 = off)")
		dbPath    = flag.String("db", defaultDBPath(), "run catalog database path (empty disables)")
	)
	flag.Parse()

	fmt.Println("gofhog - validation against reference features")

	if *refPath == "" {
		log.Fatal("-ref is required")
	}
	source, input, err := buildSource(*videoPath, *imagesDir, *resize)
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	refFile, err := os.Open(*refPath)
	if err != nil {
		log.Fatalf("Failed to open reference file: %v", err)
	}
	defer refFile.Close()
	reference := hogfile.NewReader(refFile)

	if err := source.Open(); err != nil {
		log.Fatalf("Failed to open %s: %v", input, err)
	}
	defer source.Close()

	var results []compare.Result
	frameIndex := 0
	skipped := 0

	for {
		img, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Failed reading frame %d: %v", frameIndex, err)
		}

		ref, err := reference.ReadFrame()
		if errors.Is(err, io.EOF) {
			log.Printf("Reference file ended after %d frames, input has more", frameIndex)
			break
		}
		if err != nil {
			log.Fatalf("Failed reading reference frame %d: %v", frameIndex, err)
		}

		frameIndex++

		// Frames the reference pipeline flagged as failed detections carry
		// no comparable features.
		if !ref.Valid {
			skipped++
			continue
		}

		d, err := fhog.Extract(img, *cellSize)
		if err != nil {
			log.Fatalf("Extraction failed on frame %d: %v", frameIndex-1, err)
		}

		result, err := compare.Frames(d, ref.Descriptor)
		if err != nil {
			log.Fatalf("Frame %d: %v", frameIndex-1, err)
		}
		results = append(results, result)

		status := "PASS"
		if !result.Passed() {
			status = "FAIL"
		}
		fmt.Printf("Frame %4d: %s  r=%.8f  RMSE=%.6f  max=%.6f\n",
			frameIndex-1, status, result.Correlation, result.RMSE, result.MaxDiff)
	}

	if len(results) == 0 {
		log.Fatal("No comparable frames")
	}

	summary := compare.Summarize(results)
	fmt.Println()
	fmt.Printf("Frames compared:    %d (%d skipped as invalid)\n", summary.Frames, skipped)
	fmt.Printf("Passed:             %d/%d\n", summary.Passed, summary.Frames)
	fmt.Printf("Correlation (mean): r = %.8f\n", summary.MeanCorrelation)
	fmt.Printf("Correlation (min):  r = %.8f\n", summary.MinCorrelation)
	fmt.Printf("RMSE (mean):        %.8f\n", summary.MeanRMSE)

	if *dbPath != "" {
		recordRun(*dbPath, input, *refPath, *cellSize, summary)
	}

	if summary.Passed != summary.Frames {
		os.Exit(1)
	}
}

// recordRun stores the validation outcome in the run catalog. Catalog
// failures are reported but do not change the validation verdict.
func recordRun(dbPath, input, refPath string, cellSize int, summary compare.Summary) {
	cat, err := catalog.Open(dbPath)
	if err != nil {
		log.Printf("Warning: failed to open run catalog: %v", err)
		return
	}
	defer cat.Close()

	runs := cat.Runs()
	run := &catalog.Run{
		Kind:       catalog.RunKindValidate,
		Input:      input,
		CellSize:   cellSize,
		FrameCount: summary.Frames,
	}
	if err := runs.Create(run); err != nil {
		log.Printf("Warning: failed to record run: %v", err)
		return
	}

	v := &catalog.Validation{
		RunID:           run.ID,
		Reference:       refPath,
		Frames:          summary.Frames,
		Passed:          summary.Passed,
		MinCorrelation:  summary.MinCorrelation,
		MeanCorrelation: summary.MeanCorrelation,
		MeanRMSE:        summary.MeanRMSE,
	}
	if err := runs.RecordValidation(v); err != nil {
		log.Printf("Warning: failed to record validation: %v", err)
	}
}

// buildSource selects the frame source from the mutually exclusive input
// flags and returns it with a human-readable input name.
func buildSource(videoPath, imagesDir string, resize int) (frames.Source, string, error) {
	if (videoPath == "") == (imagesDir == "") {
		return nil, "", errors.New("exactly one of -video or -images is required")
	}

	if videoPath != "" {
		return frames.NewVideoSource(videoPath), videoPath, nil
	}

	paths, err := listImages(imagesDir)
	if err != nil {
		return nil, "", err
	}
	src := frames.NewImageSource(paths)
	src.SetResize(resize)
	return src, imagesDir, nil
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
