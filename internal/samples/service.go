// Package samples lists and loads the sample invoices shipped with a
// deployment. Clients without an invoice of their own pick one of these by
// filename.
package samples

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"signoff/internal/imaging"
	dErrors "signoff/pkg/domerrors"
)

// sampleExtensions mirrors the upload formats the normalizer accepts.
var sampleExtensions = []string{"jpg", "jpeg", "png", "webp", "heic", "heif"}

// Service serves the sample invoice directory.
type Service struct {
	dir string
}

// NewService ensures the samples directory exists.
func NewService(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create samples dir: %w", err)
	}
	return &Service{dir: dir}, nil
}

// List returns the sample invoice filenames sorted by name.
func (s *Service) List(_ context.Context) ([]string, error) {
	names := make([]string, 0)
	for _, ext := range sampleExtensions {
		matches, err := filepath.Glob(filepath.Join(s.dir, "*."+ext))
		if err != nil {
			return nil, fmt.Errorf("list samples: %w", err)
		}
		for _, m := range matches {
			names = append(names, filepath.Base(m))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load opens a sample by filename and normalizes it for verification.
func (s *Service) Load(_ context.Context, name string) (*imaging.Canonical, error) {
	// Names come straight from clients; never let them escape the directory.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid sample name")
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "sample %q not found", name)
		}
		return nil, fmt.Errorf("stat sample: %w", err)
	}

	return imaging.OpenFile(path)
}
