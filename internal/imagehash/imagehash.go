// Package imagehash computes a content hash over canonical pixel data, so the
// same picture saved in different containers or with different metadata maps
// to the same hash.
package imagehash

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Info describes a decoded image.
type Info struct {
	Hash   string
	Format string
	Width  int
	Height int
}

// ContentHash decodes data and returns the SHA-256 of its canonical pixels.
func ContentHash(data []byte) (string, error) {
	info, err := Canonicalize(data)
	if err != nil {
		return "", err
	}
	return info.Hash, nil
}

// Canonicalize decodes data (png, jpeg, gif or webp), redraws it as
// non-premultiplied RGBA anchored at the origin and hashes
// width | height | pixels.
func Canonicalize(data []byte) (*Info, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	canonical := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canonical, canonical.Bounds(), img, b.Min, draw.Src)

	return &Info{
		Hash:   HashPixels(canonical),
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// HashPixels hashes an NRGBA image row by row so padding in Stride is ignored.
func HashPixels(img *image.NRGBA) string {
	h := sha256.New()

	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], uint32(img.Rect.Dx()))
	binary.BigEndian.PutUint32(dims[4:8], uint32(img.Rect.Dy()))
	h.Write(dims[:])

	rowLen := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		start := y * img.Stride
		h.Write(img.Pix[start : start+rowLen])
	}
	return hex.EncodeToString(h.Sum(nil))
}
