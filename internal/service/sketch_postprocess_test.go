package service

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := imaging.New(8, 8, c)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestPostprocessSketch_ForcesNearBlackToBlack(t *testing.T) {
	data := encodePNG(t, color.NRGBA{R: 40, G: 40, B: 40, A: 255})

	out, err := postprocessSketch(data)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 8, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())

	// Near-black line work collapses to pure black; only the light noise
	// pass can lift it afterwards.
	r, g, b, _ := img.At(4, 4).RGBA()
	assert.LessOrEqual(t, r>>8, uint32(15))
	assert.LessOrEqual(t, g>>8, uint32(15))
	assert.LessOrEqual(t, b>>8, uint32(15))
}

func TestPostprocessSketch_KeepsWhiteBackgroundBright(t *testing.T) {
	data := encodePNG(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out, err := postprocessSketch(data)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := img.At(4, 4).RGBA()
	assert.GreaterOrEqual(t, r>>8, uint32(200))
	assert.GreaterOrEqual(t, g>>8, uint32(200))
	assert.GreaterOrEqual(t, b>>8, uint32(200))
}

func TestPostprocessSketch_RejectsGarbage(t *testing.T) {
	_, err := postprocessSketch([]byte("not an image"))
	require.Error(t, err)
}
