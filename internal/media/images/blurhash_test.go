package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(w, h)))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	t.Run("png screenshot", func(t *testing.T) {
		info, err := Inspect(encodePNG(t, 256, 224))
		require.NoError(t, err)
		assert.Equal(t, "png", info.Format)
		assert.Equal(t, "image/png", info.ContentType())
		assert.Equal(t, 256, info.Width)
		assert.Equal(t, 224, info.Height)
		assert.NotEmpty(t, info.BlurHash)
	})

	t.Run("jpeg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, gradient(320, 240), nil))

		info, err := Inspect(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", info.ContentType())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Inspect([]byte("not an image"))
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Inspect(nil)
		assert.ErrorIs(t, err, errEmpty)
	})
}

func TestComputeBlurHash_SmallImageUnscaled(t *testing.T) {
	hash, err := ComputeBlurHash(encodePNG(t, 16, 16))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"already small", 32, 20, 32, 20},
		{"wide", 1280, 320, 64, 16},
		{"tall", 240, 960, 16, 64},
		{"square", 512, 512, 64, 64},
		{"sliver", 4000, 10, 64, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, thumbEdge)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestThumbnail_Bounds(t *testing.T) {
	thumb := thumbnail(gradient(640, 360))
	assert.Equal(t, 64, thumb.Bounds().Dx())
	assert.Equal(t, 36, thumb.Bounds().Dy())
}
