package fhog

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidImage is returned when an input image is nil, empty, or its
// pixel buffer does not match the declared dimensions.
var ErrInvalidImage = errors.New("invalid image")

// Image is a dense 3-channel 8-bit image in row-major order with channels
// interleaved (RGB). Pix has length Height*Width*3.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage allocates a zeroed image of the given dimensions.
func NewImage(w, h int) *Image {
	return &Image{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*3),
	}
}

// FromRaw wraps a caller-owned pixel buffer as an Image without copying.
// The buffer must hold exactly w*h*3 bytes of interleaved RGB samples;
// anything else is rejected before it can reach the extractor.
func FromRaw(w, h int, pix []uint8) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, w, h)
	}
	if len(pix) != w*h*3 {
		return nil, fmt.Errorf("%w: pixel buffer has %d bytes, want %d (3-channel 8-bit %dx%d)",
			ErrInvalidImage, len(pix), w*h*3, w, h)
	}
	return &Image{Width: w, Height: h, Pix: pix}, nil
}

// FromImage converts a standard library image into an RGB Image. Grayscale
// images are expanded to three channels, alpha is discarded, and translucent
// premultiplied RGBA pixels are converted back to straight RGB first.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	dst := NewImage(w, h)

	switch img := src.(type) {
	case *image.RGBA:
		if img.Opaque() {
			copyInterleaved(dst, img.Pix, img.Stride, 4, bounds)
		} else {
			copyUnpremultiplied(dst, img, bounds)
		}
	case *image.NRGBA:
		copyInterleaved(dst, img.Pix, img.Stride, 4, bounds)
	case *image.Gray:
		i := 0
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < w; x++ {
				v := row[x]
				dst.Pix[i] = v
				dst.Pix[i+1] = v
				dst.Pix[i+2] = v
				i += 3
			}
		}
	default:
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := src.At(x, y).RGBA()
				dst.Pix[i] = uint8(r >> 8)
				dst.Pix[i+1] = uint8(g >> 8)
				dst.Pix[i+2] = uint8(b >> 8)
				i += 3
			}
		}
	}

	return dst
}

// copyUnpremultiplied converts premultiplied RGBA samples to straight RGB.
func copyUnpremultiplied(dst *Image, img *image.RGBA, bounds image.Rectangle) {
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.RGBAAt(x, y)).(color.NRGBA)
			dst.Pix[i] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			i += 3
		}
	}
}

// copyInterleaved copies the first three channels of a 4-channel buffer.
func copyInterleaved(dst *Image, pix []uint8, stride, channels int, bounds image.Rectangle) {
	w := bounds.Dx()
	h := bounds.Dy()
	i := 0
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			dst.Pix[i] = row[x*channels]
			dst.Pix[i+1] = row[x*channels+1]
			dst.Pix[i+2] = row[x*channels+2]
			i += 3
		}
	}
}

// at returns the sample for channel ch at pixel (y, x).
func (img *Image) at(y, x, ch int) uint8 {
	return img.Pix[(y*img.Width+x)*3+ch]
}

// validate checks the buffer/dimension contract before extraction.
func (img *Image) validate() error {
	if img == nil || len(img.Pix) == 0 {
		return fmt.Errorf("%w: nil or empty", ErrInvalidImage)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, img.Width, img.Height)
	}
	if len(img.Pix) != img.Width*img.Height*3 {
		return fmt.Errorf("%w: pixel buffer has %d bytes, want %d",
			ErrInvalidImage, len(img.Pix), img.Width*img.Height*3)
	}
	return nil
}
