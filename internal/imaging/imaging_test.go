package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signoff/pkg/domerrors"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestOpenBytes_CommonFormats(t *testing.T) {
	opaque := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			opaque.SetNRGBA(x, y, color.NRGBA{R: 120, G: 30, B: 200, A: 255})
		}
	}

	t.Run("png", func(t *testing.T) {
		c, err := OpenBytes(encodePNG(t, opaque))
		require.NoError(t, err)
		assert.Equal(t, "png", c.Format)
		assert.Equal(t, 4, c.Bounds().Dx())
		assert.Equal(t, 4, c.Bounds().Dy())
	})

	t.Run("jpeg", func(t *testing.T) {
		c, err := OpenBytes(encodeJPEG(t, opaque))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", c.Format)
		assert.False(t, c.HadAlpha, "jpeg has no alpha channel")
	})
}

func TestOpenBytes_DropsAlphaWithoutCompositing(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	// Fully transparent pixels must keep their color values.
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 10, B: 30, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{R: 5, G: 250, B: 40, A: 0})
	src.SetNRGBA(0, 1, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	src.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	c, err := OpenBytes(encodePNG(t, src))
	require.NoError(t, err)
	assert.True(t, c.HadAlpha)

	got := c.Pixels.RGBAAt(0, 0)
	assert.Equal(t, color.RGBA{R: 200, G: 10, B: 30, A: 255}, got)
	assert.Equal(t, uint8(255), c.Pixels.RGBAAt(1, 1).A)
}

func TestEncodeJPEG_FullyTransparentRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 90, G: 90, B: 90, A: 0})
		}
	}

	c, err := OpenBytes(encodePNG(t, src))
	require.NoError(t, err)

	data, err := c.EncodeJPEG()
	require.NoError(t, err)

	back, err := OpenBytes(data)
	require.NoError(t, err)
	assert.False(t, back.HadAlpha, "transport encoding is a 3-channel format")
	assert.Equal(t, 8, back.Bounds().Dx())
}

func TestEncodeJPEG_Deterministic(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 77, A: 255})
		}
	}
	c, err := OpenBytes(encodePNG(t, src))
	require.NoError(t, err)

	first, err := c.EncodeJPEG()
	require.NoError(t, err)
	second, err := c.EncodeJPEG()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
}

func TestEncode_EmptyBuffer(t *testing.T) {
	c := &Canonical{Pixels: image.NewRGBA(image.Rect(0, 0, 0, 0))}
	_, err := c.EncodeJPEG()
	require.Error(t, err)
	assert.True(t, domerrors.HasCode(err, domerrors.CodeImageEncode))

	var nilCanonical *Canonical
	_, err = nilCanonical.EncodePNG()
	require.Error(t, err)
	assert.True(t, domerrors.HasCode(err, domerrors.CodeImageEncode))
}

func TestOpenBytes_UndecodableWithoutLegacyDecoder(t *testing.T) {
	_, err := OpenBytes([]byte("not an image at all"))
	require.Error(t, err)
	assert.True(t, domerrors.HasCode(err, domerrors.CodeImageDecode))
	assert.Contains(t, err.Error(), "no heif decoder available")
}

type stubLegacyDecoder struct {
	img image.Image
	err error
}

func (stubLegacyDecoder) Name() string { return "heif" }

func (d stubLegacyDecoder) Decode(io.Reader) (image.Image, error) {
	return d.img, d.err
}

func TestOpenBytes_LegacyDecoderFallback(t *testing.T) {
	t.Cleanup(func() { RegisterLegacyDecoder(nil) })

	t.Run("fallback succeeds", func(t *testing.T) {
		fallback := image.NewNRGBA(image.Rect(0, 0, 3, 3))
		RegisterLegacyDecoder(stubLegacyDecoder{img: fallback})
		require.True(t, LegacyDecoderAvailable())

		c, err := OpenBytes([]byte("pretend heif payload"))
		require.NoError(t, err)
		assert.Equal(t, "heif", c.Format)
		assert.Equal(t, 3, c.Bounds().Dx())
	})

	t.Run("both attempts fail carries both messages", func(t *testing.T) {
		RegisterLegacyDecoder(stubLegacyDecoder{err: errors.New("truncated box header")})

		_, err := OpenBytes([]byte("pretend heif payload"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode image")
		assert.Contains(t, err.Error(), "truncated box header")
	})
}
