package derive

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/jpeg"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/common"
)

// DefaultThumbnailSizes are the bounding-box edge lengths rendered when no
// sizes are configured.
var DefaultThumbnailSizes = []int{64, 128, 256}

// Thumbnailer renders thumbnail variants of the source image. Output is
// always PNG; aspect ratio is preserved with the longest edge scaled to the
// variant size.
type Thumbnailer struct {
	Sizes  []int
	Logger *slog.Logger
}

func (t Thumbnailer) Derive(ctx context.Context, src []byte, contentType string) ([]Artifact, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, common.NewAppError("THUMBNAIL_DECODE_FAILED", err.Error(), common.ErrDerivation)
	}
	sizes := t.Sizes
	if len(sizes) == 0 {
		sizes = DefaultThumbnailSizes
	}

	out := make([]Artifact, 0, len(sizes))
	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		thumb := scaleDown(img, size)
		var buf bytes.Buffer
		if err := png.Encode(&buf, thumb); err != nil {
			return nil, common.NewAppError("THUMBNAIL_ENCODE_FAILED", err.Error(), common.ErrDerivation)
		}
		out = append(out, Artifact{
			Kind:        constants.ArtifactKindThumbnail,
			Name:        fmt.Sprintf("thumb_%d.png", size),
			ContentType: "image/png",
			Bytes:       buf.Bytes(),
		})
	}
	if t.Logger != nil {
		t.Logger.Debug("thumbnailer.done", "format", format, "variants", len(out))
	}
	return out, nil
}

// scaleDown resamples src so its longest edge is max pixels. Images already
// within bounds are still re-rendered so every variant has a uniform format.
func scaleDown(src image.Image, max int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || max <= 0 {
		return src
	}
	dw, dh := w, h
	if w >= h {
		if w > max {
			dw = max
			dh = h * max / w
		}
	} else if h > max {
		dh = max
		dw = w * max / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := b.Min.Y + y*h/dh
		for x := 0; x < dw; x++ {
			sx := b.Min.X + x*w/dw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
