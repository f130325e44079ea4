package frames

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/johnwilsoniv/gofhog/fhog"
)

// MatToImage converts an OpenCV Mat into an RGB Image. Video frames arrive
// in BGR channel order, so the channels are swapped during conversion.
// Single-channel mats are expanded to three channels first.
func MatToImage(mat *gocv.Mat) (*fhog.Image, error) {
	if mat == nil || mat.Empty() {
		return nil, fmt.Errorf("%w: empty mat", fhog.ErrInvalidImage)
	}

	src := *mat
	var expanded gocv.Mat
	if mat.Channels() == 1 {
		expanded = gocv.NewMat()
		defer expanded.Close()
		gocv.CvtColor(*mat, &expanded, gocv.ColorGrayToBGR)
		src = expanded
	} else if mat.Channels() != 3 {
		return nil, fmt.Errorf("%w: %d-channel mat", fhog.ErrInvalidImage, mat.Channels())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)

	// ToBytes copies the mat data, so the Image owns its buffer.
	return fhog.FromRaw(rgb.Cols(), rgb.Rows(), rgb.ToBytes())
}
