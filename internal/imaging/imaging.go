// Package imaging normalizes uploaded images into a canonical 3-channel form
// ready for transport encoding. Decoding covers the common web raster formats;
// a legacy camera format is supported through an optional pluggable decoder so
// builds without it degrade cleanly.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/webp"

	"signoff/pkg/domerrors"
)

// transportQuality is fixed so identical pixel content always encodes to
// identical bytes.
const transportQuality = 85

// Canonical is a decoded bitmap normalized to the 3-channel color model.
// HadAlpha records whether the source carried an alpha channel, which drives
// the persistence format for reference signatures.
type Canonical struct {
	Pixels   *image.RGBA
	HadAlpha bool
	Format   string
}

// Bounds returns the pixel bounds of the canonical bitmap.
func (c *Canonical) Bounds() image.Rectangle {
	if c == nil || c.Pixels == nil {
		return image.Rectangle{}
	}
	return c.Pixels.Bounds()
}

// Open decodes an image from r. It tries the standard decoders first and, if
// that fails and a legacy decoder is registered, retries once through it. The
// returned error carries both failure messages when every attempt fails.
func Open(r io.Reader) (*Canonical, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domerrors.Wrap(domerrors.CodeImageDecode, "read image data", err)
	}
	return OpenBytes(data)
}

// OpenFile decodes the image stored at path.
func OpenFile(path string) (*Canonical, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domerrors.Wrap(domerrors.CodeImageDecode, "open image file", err)
	}
	defer f.Close()
	return Open(f)
}

// OpenBytes decodes an in-memory image.
func OpenBytes(data []byte) (*Canonical, error) {
	img, format, primaryErr := image.Decode(bytes.NewReader(data))
	if primaryErr == nil {
		return normalize(img, format), nil
	}

	dec, ok := legacyDecoder()
	if !ok {
		return nil, domerrors.Newf(domerrors.CodeImageDecode,
			"decode image: %v; no %s decoder available", primaryErr, legacyFormatName)
	}
	img, legacyErr := dec.Decode(bytes.NewReader(data))
	if legacyErr != nil {
		return nil, domerrors.Newf(domerrors.CodeImageDecode,
			"decode image: %v; %s attempt failed: %v", primaryErr, dec.Name(), legacyErr)
	}
	return normalize(img, dec.Name()), nil
}

// normalize flattens img into the 3-channel model. Alpha is dropped, not
// composited: transparent pixels keep their RGB values.
func normalize(img image.Image, format string) *Canonical {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
		}
	}
	return &Canonical{
		Pixels:   dst,
		HadAlpha: hasAlphaChannel(img),
		Format:   format,
	}
}

func hasAlphaChannel(img image.Image) bool {
	switch img.ColorModel() {
	case color.NRGBAModel, color.RGBAModel, color.NRGBA64Model, color.RGBA64Model:
		return true
	}
	return false
}

// EncodeJPEG produces the transport encoding: fixed-quality JPEG, identical
// bytes for identical pixel content.
func (c *Canonical) EncodeJPEG() ([]byte, error) {
	if err := c.checkEncodable(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.Pixels, &jpeg.Options{Quality: transportQuality}); err != nil {
		return nil, domerrors.Wrap(domerrors.CodeImageEncode, "encode jpeg", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG produces the lossless encoding used when persisting reference
// signatures whose source carried transparency.
func (c *Canonical) EncodePNG() ([]byte, error) {
	if err := c.checkEncodable(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.Pixels); err != nil {
		return nil, domerrors.Wrap(domerrors.CodeImageEncode, "encode png", err)
	}
	return buf.Bytes(), nil
}

func (c *Canonical) checkEncodable() error {
	if c == nil || c.Pixels == nil {
		return domerrors.New(domerrors.CodeImageEncode, "no decoded pixel data")
	}
	if c.Pixels.Bounds().Empty() {
		return domerrors.New(domerrors.CodeImageEncode, "empty pixel buffer")
	}
	return nil
}
