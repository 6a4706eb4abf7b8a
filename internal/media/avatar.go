package media

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"path"
	"strings"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultAvatarMaxPx = 300
	WebPQuality        = 80
)

// ErrInvalidImage is returned when an upload is not a decodable image.
var ErrInvalidImage = errors.New("upload a valid image")

// SaveAvatar decodes content, shrinks it to fit maxPx square and stores it as webp.
// It returns the relative path of the stored image.
func (s *Store) SaveAvatar(content []byte, maxPx int) (string, error) {
	if maxPx <= 0 {
		maxPx = DefaultAvatarMaxPx
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", ErrInvalidImage
	}

	resized := resizeToFit(decoded, maxPx, maxPx)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return "", err
	}

	rel := path.Join(AvatarDir, uuid.NewString()+".webp")
	if err := s.write(rel, bytes.NewReader(encoded)); err != nil {
		return "", err
	}
	return rel, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}
