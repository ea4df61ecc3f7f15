package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// encodeGrayPNG builds a PNG straight from luminance values so threshold
// tests control every pixel
func encodeGrayPNG(t *testing.T, width, height int, at func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: at(x, y)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreprocessor_Prepare(t *testing.T) {
	p := NewPreprocessor(models.PipelineConfig{DenoiseRadius: 1, Threshold: ThresholdFixed, ThresholdValue: 140})

	t.Run("should produce a binary image with original dimensions", func(t *testing.T) {
		prepared, err := p.Prepare(makePNG(t, 10, 8, color.White))
		require.NoError(t, err)

		assert.Equal(t, 10, prepared.Width)
		assert.Equal(t, 8, prepared.Height)
		assert.Equal(t, image.Rect(0, 0, 10, 8), prepared.Gray.Bounds())
		for _, v := range prepared.Gray.Pix {
			assert.Contains(t, []uint8{0, 255}, v)
		}
	})

	t.Run("should split dark and light pixels at the fixed cutoff", func(t *testing.T) {
		// Left half at 50, right half at 200.
		data := encodeGrayPNG(t, 8, 8, func(x, y int) uint8 {
			if x < 4 {
				return 50
			}
			return 200
		})

		// No denoise so the halves stay crisp.
		plain := NewPreprocessor(models.PipelineConfig{Threshold: ThresholdFixed, ThresholdValue: 140})
		prepared, err := plain.Prepare(data)
		require.NoError(t, err)

		assert.Equal(t, uint8(0), prepared.Gray.GrayAt(0, 0).Y)
		assert.Equal(t, uint8(0), prepared.Gray.GrayAt(3, 7).Y)
		assert.Equal(t, uint8(255), prepared.Gray.GrayAt(4, 0).Y)
		assert.Equal(t, uint8(255), prepared.Gray.GrayAt(7, 7).Y)
	})

	t.Run("should fail on undecodable bytes", func(t *testing.T) {
		_, err := p.Prepare([]byte("definitely not an image"))
		assert.Equal(t, ErrDecodeFailed, CodeOf(err))
	})

	t.Run("should fail on a degenerate image", func(t *testing.T) {
		_, err := p.Prepare(makePNG(t, 2, 2, color.White))
		assert.Equal(t, ErrDegenerateImage, CodeOf(err))

		_, err = p.Prepare(makePNG(t, 100, 1, color.White))
		assert.Equal(t, ErrDegenerateImage, CodeOf(err))
	})

	t.Run("should accept the smallest useful image", func(t *testing.T) {
		_, err := p.Prepare(makePNG(t, 3, 3, color.White))
		assert.NoError(t, err)
	})
}

func TestPreprocessor_Denoise(t *testing.T) {
	// Black field with one white speck in the middle.
	speckled := encodeGrayPNG(t, 7, 7, func(x, y int) uint8 {
		if x == 3 && y == 3 {
			return 255
		}
		return 0
	})

	t.Run("should remove salt noise with the median filter", func(t *testing.T) {
		p := NewPreprocessor(models.PipelineConfig{DenoiseRadius: 1, Threshold: ThresholdFixed, ThresholdValue: 140})
		prepared, err := p.Prepare(speckled)
		require.NoError(t, err)

		assert.Equal(t, uint8(0), prepared.Gray.GrayAt(3, 3).Y)
	})

	t.Run("should keep the speck when denoise is off", func(t *testing.T) {
		p := NewPreprocessor(models.PipelineConfig{DenoiseRadius: 0, Threshold: ThresholdFixed, ThresholdValue: 140})
		prepared, err := p.Prepare(speckled)
		require.NoError(t, err)

		assert.Equal(t, uint8(255), prepared.Gray.GrayAt(3, 3).Y)
	})
}

func TestPreprocessor_Otsu(t *testing.T) {
	// Strongly bimodal image: background at 190, glyph band at 60.
	bimodal := encodeGrayPNG(t, 16, 16, func(x, y int) uint8 {
		if y >= 6 && y < 10 {
			return 60
		}
		return 190
	})

	p := NewPreprocessor(models.PipelineConfig{Threshold: ThresholdOtsu})
	prepared, err := p.Prepare(bimodal)
	require.NoError(t, err)

	assert.Equal(t, uint8(255), prepared.Gray.GrayAt(0, 0).Y, "background should binarize white")
	assert.Equal(t, uint8(0), prepared.Gray.GrayAt(0, 7).Y, "glyph band should binarize black")
}

func TestPreprocessor_Downscale(t *testing.T) {
	p := NewPreprocessor(models.PipelineConfig{Threshold: ThresholdFixed, MaxDimension: 40})

	prepared, err := p.Prepare(makePNG(t, 100, 50, color.White))
	require.NoError(t, err)

	// Reported dimensions stay the original ones; the buffer shrinks.
	assert.Equal(t, 100, prepared.Width)
	assert.Equal(t, 50, prepared.Height)
	assert.Equal(t, image.Rect(0, 0, 40, 20), prepared.Gray.Bounds())
}

func TestPreparedImage_PNG(t *testing.T) {
	p := NewPreprocessor(models.PipelineConfig{})
	prepared, err := p.Prepare(makePNG(t, 12, 9, color.White))
	require.NoError(t, err)

	encoded, err := prepared.PNG()
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 12, 9), decoded.Bounds())
}

func TestOtsuThreshold(t *testing.T) {
	t.Run("should sit between two well-separated classes", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 10, 10))
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				v := uint8(190)
				if y < 5 {
					v = 60
				}
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}

		cutoff := otsuThreshold(img)
		assert.Greater(t, cutoff, uint8(60))
		assert.LessOrEqual(t, cutoff, uint8(190))
	})

	t.Run("should leave a uniform image on one side of the cutoff", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		cutoff := otsuThreshold(img)
		// All pixels are 0; they must all fall below the cutoff.
		assert.Greater(t, cutoff, uint8(0))
	})
}
