package engine

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// renderTextPNG draws a line of text with the basic 7x13 face and scales
// it up so the glyphs are comfortably OCR-sized
func renderTextPNG(t *testing.T, text string) []byte {
	t.Helper()

	small := image.NewRGBA(image.Rect(0, 0, 20+7*len(text), 40))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 25),
	}
	d.DrawString(text)

	big := image.NewRGBA(image.Rect(0, 0, small.Bounds().Dx()*4, small.Bounds().Dy()*4))
	xdraw.ApproxBiLinear.Scale(big, big.Bounds(), small, small.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, big))
	return buf.Bytes()
}

func TestTesseractEngine_Name(t *testing.T) {
	assert.Equal(t, "tesseract", NewTesseractEngine().Name())
}

func TestTesseractEngine_CanceledContext(t *testing.T) {
	eng := NewTesseractEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Recognize(ctx, Request{Image: []byte{0x89}, Language: "eng"})
	assert.Error(t, err)
}

func TestTesseractEngine_Recognize(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}

	eng := NewTesseractEngine()
	img := renderTextPNG(t, "HELLO WORLD")

	res, err := eng.Recognize(context.Background(), Request{Image: img, Language: "eng"})
	require.NoError(t, err)

	assert.Contains(t, strings.ToUpper(res.Text), "HELLO")
}

func TestTesseractEngine_GarbageImage(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}

	eng := NewTesseractEngine()
	_, err := eng.Recognize(context.Background(), Request{Image: []byte("not an image"), Language: "eng"})
	assert.Error(t, err)
}
