// Package images inspects photo submissions and computes their placeholders.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// thumbEdge bounds the longer side of the image fed to the blurhash encoder.
const thumbEdge = 64

// Placeholder components. 4x3 suits landscape screenshots.
const (
	xComponents = 4
	yComponents = 3
)

var errEmpty = errors.New("empty image data")

// Info describes a decoded photo.
type Info struct {
	Format   string // decoder name: "png", "jpeg", "gif" or "webp"
	Width    int
	Height   int
	BlurHash string
}

// ContentType returns the MIME type matching the decoded format.
func (i Info) ContentType() string {
	return "image/" + i.Format
}

// Inspect decodes data and computes its placeholder.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, errEmpty
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(xComponents, yComponents, thumbnail(img))
	if err != nil {
		return Info{}, fmt.Errorf("encode blurhash: %w", err)
	}

	b := img.Bounds()
	return Info{Format: format, Width: b.Dx(), Height: b.Dy(), BlurHash: hash}, nil
}

// ComputeBlurHash returns only the placeholder of data.
func ComputeBlurHash(data []byte) (string, error) {
	info, err := Inspect(data)
	if err != nil {
		return "", err
	}
	return info.BlurHash, nil
}

func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), thumbEdge)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// fitWithin scales w x h so the longer side is at most edge, keeping the
// aspect ratio and never returning a zero side.
func fitWithin(w, h, edge int) (int, int) {
	if w <= edge && h <= edge {
		return w, h
	}
	if w >= h {
		return edge, max(h*edge/w, 1)
	}
	return max(w*edge/h, 1), edge
}
