package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

// DefaultLevels is the number of ink intensity levels in a feature vector.
// Level 0 is blank paper.
const DefaultLevels = 8

var (
	ErrUndecodable = errors.New("undecodable image")
	ErrTooLarge    = errors.New("image dimensions exceed pixel limit")
)

// Decode reads the header first and refuses images with more than maxPixels
// pixels before any pixel data is allocated. maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int) (image.Image, string, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
			return nil, "", fmt.Errorf("%w: %w (%dx%d, limit %d)", ErrUndecodable, ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return img, format, nil
}

// Hash returns the hex SHA-256 of the raw upload.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsMonochrome reports whether every pixel, composited over white, is a shade
// of gray within tolerance on each channel pair.
func IsMonochrome(img image.Image, tolerance uint8) bool {
	b := img.Bounds()
	tol := int(tolerance)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl := overWhite(img.At(x, y))
			if abs(r-g) > tol || abs(g-bl) > tol || abs(r-bl) > tol {
				return false
			}
		}
	}
	return true
}

// Features downsamples img onto a width×height grid. Each cell holds the mean
// darkness of the pixels it covers, quantized to levels steps.
func Features(img image.Image, width, height, levels int) []int {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	features := make([]int, width*height)
	if w == 0 || h == 0 {
		return features
	}

	for gy := 0; gy < height; gy++ {
		y0, y1 := span(b.Min.Y, h, gy, height)
		for gx := 0; gx < width; gx++ {
			x0, x1 := span(b.Min.X, w, gx, width)

			total, count := 0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, bl := overWhite(img.At(x, y))
					total += 255 - luminance(r, g, bl)
					count++
				}
			}
			features[gy*width+gx] = (total / count) * levels / 256
		}
	}
	return features
}

// Render draws a feature grid back into a grayscale PNG, scaled up so each
// cell is a scale×scale block.
func Render(features []int, width, height, levels, scale int) ([]byte, error) {
	if len(features) != width*height {
		return nil, fmt.Errorf("feature length %d does not match %dx%d grid", len(features), width, height)
	}
	if scale <= 0 {
		scale = 1
	}

	img := image.NewGray(image.Rect(0, 0, width*scale, height*scale))
	for gy := 0; gy < height; gy++ {
		for gx := 0; gx < width; gx++ {
			level := features[gy*width+gx]
			darkness := 0
			if levels > 1 {
				darkness = level * 255 / (levels - 1)
			}
			shade := color.Gray{Y: uint8(255 - clamp(darkness, 0, 255))}
			for y := gy * scale; y < (gy+1)*scale; y++ {
				for x := gx * scale; x < (gx+1)*scale; x++ {
					img.SetGray(x, y, shade)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// InkRatio is the fraction of non-blank cells in a feature vector.
func InkRatio(features []int) float64 {
	if len(features) == 0 {
		return 0
	}
	ink := 0
	for _, v := range features {
		if v > 0 {
			ink++
		}
	}
	return float64(ink) / float64(len(features))
}

// InkRows counts grid rows that contain at least one non-blank cell.
func InkRows(features []int, width int) int {
	if width <= 0 {
		return 0
	}
	rows := 0
	for start := 0; start+width <= len(features); start += width {
		for _, v := range features[start : start+width] {
			if v > 0 {
				rows++
				break
			}
		}
	}
	return rows
}

func span(origin, size, cell, cells int) (int, int) {
	lo := origin + cell*size/cells
	hi := origin + (cell+1)*size/cells
	if hi <= lo {
		hi = lo + 1
	}
	if hi > origin+size {
		hi = origin + size
		if lo >= hi {
			lo = hi - 1
		}
	}
	return lo, hi
}

// overWhite returns 8-bit channels with transparency blended onto white.
func overWhite(c color.Color) (int, int, int) {
	r, g, b, a := c.RGBA()
	bg := 0xffff - a
	return int((r + bg) >> 8), int((g + bg) >> 8), int((b + bg) >> 8)
}

func luminance(r, g, b int) int {
	return (299*r + 587*g + 114*b) / 1000
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
