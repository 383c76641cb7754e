//go:build heif

package imaging

import (
	"image"
	"io"

	"github.com/jdeng/goheif"
)

// Builds with the heif tag link libheif through goheif and register it as the
// legacy decoder.
func init() {
	RegisterLegacyDecoder(heifDecoder{})
}

type heifDecoder struct{}

func (heifDecoder) Name() string { return legacyFormatName }

func (heifDecoder) Decode(r io.Reader) (image.Image, error) {
	return goheif.Decode(r)
}
