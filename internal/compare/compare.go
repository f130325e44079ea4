// Package compare measures agreement between a computed descriptor and a
// reference descriptor frame.
package compare

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// PassCorrelation is the minimum Pearson correlation for a frame to count as
// matching the reference implementation.
const PassCorrelation = 0.999

// ErrShapeMismatch is returned when the two descriptors cannot be compared
// element-wise.
var ErrShapeMismatch = errors.New("descriptor shape mismatch")

// Result holds the agreement metrics for one frame.
type Result struct {
	Correlation float64
	RMSE        float64
	MAE         float64
	MaxDiff     float64
}

// Passed reports whether the frame meets the correlation threshold.
func (r Result) Passed() bool {
	return r.Correlation > PassCorrelation
}

// Frames compares two descriptors element-wise. Shapes must match exactly.
func Frames(got, want *fhog.Descriptor) (Result, error) {
	if got.Rows != want.Rows || got.Cols != want.Cols || got.Channels != want.Channels {
		return Result{}, fmt.Errorf("%w: got (%d, %d, %d), reference (%d, %d, %d)",
			ErrShapeMismatch, got.Rows, got.Cols, got.Channels, want.Rows, want.Cols, want.Channels)
	}
	if len(got.Data) == 0 {
		return Result{}, fmt.Errorf("%w: empty descriptors", ErrShapeMismatch)
	}

	x := make([]float64, len(got.Data))
	y := make([]float64, len(want.Data))
	var sumSq, sumAbs, maxDiff float64
	for i := range got.Data {
		x[i] = float64(got.Data[i])
		y[i] = float64(want.Data[i])
		diff := math.Abs(x[i] - y[i])
		sumSq += diff * diff
		sumAbs += diff
		if diff > maxDiff {
			maxDiff = diff
		}
	}

	n := float64(len(x))
	return Result{
		Correlation: stat.Correlation(x, y, nil),
		RMSE:        math.Sqrt(sumSq / n),
		MAE:         sumAbs / n,
		MaxDiff:     maxDiff,
	}, nil
}

// Summary aggregates per-frame results.
type Summary struct {
	Frames          int
	Passed          int
	MinCorrelation  float64
	MeanCorrelation float64
	MeanRMSE        float64
}

// Summarize folds per-frame results into a run summary.
func Summarize(results []Result) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	s := Summary{Frames: len(results), MinCorrelation: math.Inf(1)}
	var corrSum, rmseSum float64
	for _, r := range results {
		if r.Passed() {
			s.Passed++
		}
		if r.Correlation < s.MinCorrelation {
			s.MinCorrelation = r.Correlation
		}
		corrSum += r.Correlation
		rmseSum += r.RMSE
	}
	s.MeanCorrelation = corrSum / float64(len(results))
	s.MeanRMSE = rmseSum / float64(len(results))
	return s
}
