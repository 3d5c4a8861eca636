package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	imgutil "folio/utils/images"
)

// ErrUnknownFormat is returned for data which does not look like an image.
var ErrUnknownFormat = errors.New("unknown image format")

// KindSVG is reported for SVG documents.
const KindSVG = "svg"

// Sniff detects image kind from content.
func Sniff(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown && filetype.IsImage(data) {
		return kind.Extension, nil
	}
	if looksLikeSVG(data) {
		return KindSVG, nil
	}
	return "", ErrUnknownFormat
}

func looksLikeSVG(data []byte) bool {
	head := data[:min(len(data), 1024)]
	return bytes.Contains(head, []byte("<svg"))
}

// Probe returns kind and natural size of an image without decoding pixels.
func Probe(data []byte) (kind string, width, height int, err error) {
	kind, err = Sniff(data)
	if err != nil {
		return "", 0, 0, err
	}
	if kind == KindSVG {
		width, height, err = imgutil.SVGSize(data)
		if err != nil {
			return kind, 0, 0, fmt.Errorf("unable to read svg: %w", err)
		}
		return kind, width, height, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return kind, 0, 0, fmt.Errorf("unable to read %s header: %w", kind, err)
	}
	return kind, cfg.Width, cfg.Height, nil
}

// Decode decodes image pixels honoring EXIF orientation. Images wider than
// maxWidth (when positive) are downscaled keeping aspect ratio, SVG is
// rasterized directly at the target size. Opaque grayscale bitmaps are kept
// as 8-bit gray.
func Decode(data []byte, kind string, maxWidth int) (image.Image, error) {
	if kind == KindSVG {
		w := 0
		if iw, _, err := imgutil.SVGSize(data); err == nil && maxWidth > 0 && iw > maxWidth {
			w = maxWidth
		}
		img, err := imgutil.RasterizeSVGToImage(data, w, 0)
		if err != nil {
			return nil, fmt.Errorf("unable to rasterize svg: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", kind, err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return imgutil.Compact(img), nil
}
