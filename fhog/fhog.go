// Package fhog extracts Felzenszwalb HOG (FHOG) descriptors from 8-bit RGB
// images. The output contract matches the 31-channel variant used by
// OpenFace 2.2: 18 contrast-sensitive orientation bins, 9 contrast-insensitive
// bins, and 4 texture-energy features per cell, with the descriptor grid inset
// by one cell on every border.
package fhog

import (
	"errors"
	"fmt"
	"math"
)

// NumChannels is the number of features per descriptor cell.
const NumChannels = 31

// ErrInvalidCellSize is returned when the requested cell size is not a
// positive integer.
var ErrInvalidCellSize = errors.New("invalid cell size")

// Algorithm constants. These are fixed by the descriptor definition and are
// not tunable: changing any of them breaks compatibility with reference
// feature files.
const (
	numOrientations = 9   // contrast-insensitive bins; signed bins are 2x this
	truncation      = 0.2 // normalized bin values are clipped here
	textureWeight   = 0.2357
	normEpsilon     = 0.0001
)

// Unit vectors at 20 degree increments used to snap gradients to one of 18
// signed orientations.
var (
	binCos = [numOrientations]float64{1.0000, 0.9397, 0.7660, 0.5000, 0.1736, -0.1736, -0.5000, -0.7660, -0.9397}
	binSin = [numOrientations]float64{0.0000, 0.3420, 0.6428, 0.8660, 0.9848, 0.9848, 0.8660, 0.6428, 0.3420}
)

// Descriptor is a flattened FHOG feature grid. Data is row-major with the
// channel index innermost: Data[(row*Cols+col)*Channels + ch].
type Descriptor struct {
	Rows     int
	Cols     int
	Channels int
	Data     []float32
}

// At returns the feature value for the given cell and channel.
func (d *Descriptor) At(row, col, ch int) float32 {
	return d.Data[(row*d.Cols+col)*d.Channels+ch]
}

// Empty reports whether the descriptor grid degenerated to zero cells.
func (d *Descriptor) Empty() bool {
	return d.Rows == 0 || d.Cols == 0
}

// Extract computes the FHOG descriptor of img with the given cell size.
//
// The descriptor grid has Rows = H/cellSize - 2 and Cols = W/cellSize - 2
// (floor division): gradient pooling consumes one cell of border on every
// edge. Images too small to yield at least one cell produce an empty
// descriptor, not an error. The computation is deterministic and keeps no
// state between calls, so concurrent extraction on independent images is
// safe.
func Extract(img *Image, cellSize int) (*Descriptor, error) {
	if cellSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCellSize, cellSize)
	}
	if err := img.validate(); err != nil {
		return nil, err
	}

	cellRows := img.Height / cellSize
	cellCols := img.Width / cellSize
	rows := cellRows - 2
	cols := cellCols - 2
	if rows <= 0 || cols <= 0 {
		return &Descriptor{Channels: NumChannels, Data: []float32{}}, nil
	}

	hist := accumulateGradients(img, cellSize, cellRows, cellCols)

	// Per-cell gradient energy used by block normalization.
	norm := make([]float64, cellRows*cellCols)
	for c := 0; c < cellRows*cellCols; c++ {
		h := hist[c*2*numOrientations:]
		for o := 0; o < numOrientations; o++ {
			s := h[o] + h[o+numOrientations]
			norm[c] += s * s
		}
	}

	data := make([]float32, rows*cols*NumChannels)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cell := (y+1)*cellCols + x + 1

			// Energies of the four 2x2 blocks containing this cell.
			n1 := blockNorm(norm, cell, cellCols, 0, 0)
			n2 := blockNorm(norm, cell, cellCols, -1, 0)
			n3 := blockNorm(norm, cell, cellCols, 0, -1)
			n4 := blockNorm(norm, cell, cellCols, -1, -1)

			h := hist[cell*2*numOrientations:]
			out := data[(y*cols+x)*NumChannels:]

			var t1, t2, t3, t4 float64
			for o := 0; o < 2*numOrientations; o++ {
				h1 := math.Min(h[o]*n1, truncation)
				h2 := math.Min(h[o]*n2, truncation)
				h3 := math.Min(h[o]*n3, truncation)
				h4 := math.Min(h[o]*n4, truncation)
				out[o] = float32(0.5 * (h1 + h2 + h3 + h4))
				t1 += h1
				t2 += h2
				t3 += h3
				t4 += h4
			}
			for o := 0; o < numOrientations; o++ {
				s := h[o] + h[o+numOrientations]
				h1 := math.Min(s*n1, truncation)
				h2 := math.Min(s*n2, truncation)
				h3 := math.Min(s*n3, truncation)
				h4 := math.Min(s*n4, truncation)
				out[2*numOrientations+o] = float32(0.5 * (h1 + h2 + h3 + h4))
			}
			out[27] = float32(textureWeight * t1)
			out[28] = float32(textureWeight * t2)
			out[29] = float32(textureWeight * t3)
			out[30] = float32(textureWeight * t4)
		}
	}

	return &Descriptor{Rows: rows, Cols: cols, Channels: NumChannels, Data: data}, nil
}

// accumulateGradients builds the per-cell histogram of 18 signed orientation
// bins. Each pixel gradient is taken on the channel with the largest
// magnitude and splat bilinearly across the four nearest cells.
func accumulateGradients(img *Image, cellSize, cellRows, cellCols int) []float64 {
	hist := make([]float64, cellRows*cellCols*2*numOrientations)

	visibleRows := cellRows * cellSize
	visibleCols := cellCols * cellSize
	invCell := 1 / float64(cellSize)

	for y := 1; y < visibleRows-1; y++ {
		iy := min(y, img.Height-2)
		for x := 1; x < visibleCols-1; x++ {
			ix := min(x, img.Width-2)

			// Strongest per-channel central difference.
			var gx, gy, mag float64
			for ch := 0; ch < 3; ch++ {
				dx := float64(img.at(iy, ix+1, ch)) - float64(img.at(iy, ix-1, ch))
				dy := float64(img.at(iy+1, ix, ch)) - float64(img.at(iy-1, ix, ch))
				if m := dx*dx + dy*dy; m > mag {
					mag = m
					gx = dx
					gy = dy
				}
			}

			// Snap to one of 18 signed orientations.
			best := 0.0
			bestO := 0
			for o := 0; o < numOrientations; o++ {
				dot := binCos[o]*gx + binSin[o]*gy
				if dot > best {
					best = dot
					bestO = o
				} else if -dot > best {
					best = -dot
					bestO = o + numOrientations
				}
			}

			v := math.Sqrt(mag)

			// Bilinear vote into the cell grid centered on cell midpoints.
			xp := (float64(x)+0.5)*invCell - 0.5
			yp := (float64(y)+0.5)*invCell - 0.5
			ixp := int(math.Floor(xp))
			iyp := int(math.Floor(yp))
			vx0 := xp - float64(ixp)
			vy0 := yp - float64(iyp)
			vx1 := 1 - vx0
			vy1 := 1 - vy0

			if iyp >= 0 && ixp >= 0 {
				hist[(iyp*cellCols+ixp)*2*numOrientations+bestO] += vy1 * vx1 * v
			}
			if iyp >= 0 && ixp+1 < cellCols {
				hist[(iyp*cellCols+ixp+1)*2*numOrientations+bestO] += vy1 * vx0 * v
			}
			if iyp+1 < cellRows && ixp >= 0 {
				hist[((iyp+1)*cellCols+ixp)*2*numOrientations+bestO] += vy0 * vx1 * v
			}
			if iyp+1 < cellRows && ixp+1 < cellCols {
				hist[((iyp+1)*cellCols+ixp+1)*2*numOrientations+bestO] += vy0 * vx0 * v
			}
		}
	}

	return hist
}

// blockNorm returns the inverse square root of the summed gradient energy of
// the 2x2 cell block whose top-left corner is offset (dy, dx) from cell.
func blockNorm(norm []float64, cell, stride, dy, dx int) float64 {
	corner := cell + dy*stride + dx
	sum := norm[corner] + norm[corner+1] + norm[corner+stride] + norm[corner+stride+1]
	return 1 / math.Sqrt(sum+normEpsilon)
}
