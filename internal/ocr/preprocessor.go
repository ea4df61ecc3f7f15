package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"

	// Decoders for every upload format the validator can admit
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// Threshold strategies for the binarize step
const (
	ThresholdFixed = "fixed"
	ThresholdOtsu  = "otsu"
)

// Images narrower or shorter than this cannot carry a glyph
const minUsefulDimension = 3

// PreparedImage is the output of the filter chain: a binarized
// single-channel buffer plus the original decoded dimensions. Produced
// by Prepare, consumed once by the Extractor; never aliases caller data.
type PreparedImage struct {
	Gray   *image.Gray
	Width  int // original decoded width
	Height int // original decoded height
}

// PNG encodes the prepared buffer for engines that take encoded bytes
func (p *PreparedImage) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Gray); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Preprocessor turns raw upload bytes into a high-contrast image for
// recognition. The chain is fixed: decode -> (optional downscale) ->
// grayscale -> median denoise -> binarize. Reordering it changes
// recognition results, so don't.
type Preprocessor struct {
	denoiseRadius  int
	threshold      string
	thresholdValue uint8
	maxDimension   int
}

// NewPreprocessor creates a preprocessor from the pipeline config.
// A zero threshold value falls back to 140; denoise radius 0 disables
// the median filter; max dimension 0 disables downscaling.
func NewPreprocessor(cfg models.PipelineConfig) *Preprocessor {
	strategy := cfg.Threshold
	if strategy == "" {
		strategy = ThresholdFixed
	}
	value := cfg.ThresholdValue
	if value <= 0 || value > 255 {
		value = 140
	}
	radius := cfg.DenoiseRadius
	if radius < 0 {
		radius = 0
	}
	maxDim := cfg.MaxDimension
	if maxDim < 0 {
		maxDim = 0
	}
	return &Preprocessor{
		denoiseRadius:  radius,
		threshold:      strategy,
		thresholdValue: uint8(value),
		maxDimension:   maxDim,
	}
}

// Prepare runs the filter chain on raw image bytes
func (p *Preprocessor) Prepare(raw []byte) (*PreparedImage, error) {
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, newDecodeFailedError(err)
	}

	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < minUsefulDimension || height < minUsefulDimension {
		return nil, newDegenerateImageError(width, height)
	}

	if p.maxDimension > 0 && (width > p.maxDimension || height > p.maxDimension) {
		src = downscale(src, p.maxDimension)
	}

	gray := toGray(src)
	if p.denoiseRadius > 0 {
		gray = medianFilter(gray, p.denoiseRadius)
	}

	cutoff := p.thresholdValue
	if p.threshold == ThresholdOtsu {
		cutoff = otsuThreshold(gray)
	}
	binarize(gray, cutoff)

	log.Printf("[Preprocessor] %s %dx%d prepared (cutoff %d)", format, width, height, cutoff)
	return &PreparedImage{Gray: gray, Width: width, Height: height}, nil
}

// toGray converts any decoded image to a single-channel luminance buffer
// anchored at the origin
func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	return gray
}

// downscale fits src inside max by max pixels, preserving aspect ratio
func downscale(src image.Image, max int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := float64(max) / float64(w)
	if h > w {
		scale = float64(max) / float64(h)
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// medianFilter replaces each pixel with the median of its (2r+1)x(2r+1)
// neighborhood, clamping at the image border
func medianFilter(src *image.Gray, radius int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for i := range hist {
				hist[i] = 0
			}
			count := 0
			for dy := -radius; dy <= radius; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -radius; dx <= radius; dx++ {
					xx := clamp(x+dx, 0, w-1)
					hist[src.GrayAt(xx, yy).Y]++
					count++
				}
			}
			mid := count / 2
			acc := 0
			for v := 0; v < 256; v++ {
				acc += hist[v]
				if acc > mid {
					dst.SetGray(x, y, color.Gray{Y: uint8(v)})
					break
				}
			}
		}
	}
	return dst
}

// otsuThreshold picks the cutoff that maximizes between-class variance
// over the luminance histogram
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	total := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
			total++
		}
	}

	var sum float64
	for v := 0; v < 256; v++ {
		sum += float64(v) * float64(hist[v])
	}

	var sumB, wB, maxVar float64
	var best uint8
	for v := 0; v < 256; v++ {
		wB += float64(hist[v])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(v) * float64(hist[v])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			best = uint8(v)
		}
	}
	// binarize uses a strict less-than, so everything at or below the
	// picked value must sit under the cutoff
	return best + 1
}

// binarize maps every pixel below the cutoff to black and the rest to
// white, in place
func binarize(img *image.Gray, cutoff uint8) {
	for i, v := range img.Pix {
		if v < cutoff {
			img.Pix[i] = 0
		} else {
			img.Pix[i] = 255
		}
	}
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
