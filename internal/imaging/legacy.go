package imaging

import (
	"image"
	"io"
	"sync"
)

// legacyFormatName names the optional camera format in error messages even
// when no decoder for it is compiled in.
const legacyFormatName = "heif"

// LegacyDecoder is the pluggable capability for the optional camera format.
// Builds that include the decoder register it during init; everything else
// probes availability and falls back cleanly.
type LegacyDecoder interface {
	Name() string
	Decode(r io.Reader) (image.Image, error)
}

var (
	legacyMu  sync.RWMutex
	legacyDec LegacyDecoder
)

// RegisterLegacyDecoder installs the legacy format decoder. Later calls
// replace earlier ones; registration is expected at startup only.
func RegisterLegacyDecoder(d LegacyDecoder) {
	legacyMu.Lock()
	defer legacyMu.Unlock()
	legacyDec = d
}

// LegacyDecoderAvailable reports whether a legacy decoder is registered.
func LegacyDecoderAvailable() bool {
	_, ok := legacyDecoder()
	return ok
}

func legacyDecoder() (LegacyDecoder, bool) {
	legacyMu.RLock()
	defer legacyMu.RUnlock()
	return legacyDec, legacyDec != nil
}
