package derive

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/common"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailer_RendersEachVariant(t *testing.T) {
	src := testPNG(t, 40, 20)
	th := Thumbnailer{Sizes: []int{4, 8}}

	arts, err := th.Derive(context.Background(), src, "image/png")
	require.NoError(t, err)
	require.Len(t, arts, 2)

	for i, want := range []struct {
		name   string
		wd, ht int
	}{
		{"thumb_4.png", 4, 2},
		{"thumb_8.png", 8, 4},
	} {
		a := arts[i]
		assert.Equal(t, constants.ArtifactKindThumbnail, a.Kind)
		assert.Equal(t, want.name, a.Name)
		assert.Equal(t, "image/png", a.ContentType)

		img, _, err := image.Decode(bytes.NewReader(a.Bytes))
		require.NoError(t, err)
		assert.Equal(t, want.wd, img.Bounds().Dx())
		assert.Equal(t, want.ht, img.Bounds().Dy())
	}
}

func TestThumbnailer_PortraitKeepsAspect(t *testing.T) {
	src := testPNG(t, 10, 30)
	th := Thumbnailer{Sizes: []int{6}}

	arts, err := th.Derive(context.Background(), src, "image/png")
	require.NoError(t, err)
	require.Len(t, arts, 1)

	img, _, err := image.Decode(bytes.NewReader(arts[0].Bytes))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestThumbnailer_DefaultsSizes(t *testing.T) {
	src := testPNG(t, 300, 300)
	arts, err := Thumbnailer{}.Derive(context.Background(), src, "image/png")
	require.NoError(t, err)
	assert.Len(t, arts, len(DefaultThumbnailSizes))
}

func TestThumbnailer_RejectsUndecodableBytes(t *testing.T) {
	_, err := Thumbnailer{Sizes: []int{8}}.Derive(context.Background(), []byte("not an image"), "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDerivation)
}

func TestMulti_FirstFailureAborts(t *testing.T) {
	src := testPNG(t, 8, 8)
	failing := deriverFunc(func(ctx context.Context, src []byte, ct string) ([]Artifact, error) {
		return nil, common.NewAppError("X", "nope", common.ErrDerivation)
	})

	_, err := Multi{Thumbnailer{Sizes: []int{4}}, failing}.Derive(context.Background(), src, "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDerivation)
}

type deriverFunc func(ctx context.Context, src []byte, contentType string) ([]Artifact, error)

func (f deriverFunc) Derive(ctx context.Context, src []byte, contentType string) ([]Artifact, error) {
	return f(ctx, src, contentType)
}
