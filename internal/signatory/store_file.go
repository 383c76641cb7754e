package signatory

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"signoff/internal/imaging"
	"signoff/internal/signatory/metrics"
	"signoff/pkg/domerrors"
)

const (
	registryFileName = "authorized_signatories.json"
	signaturesDir    = "signatures"
	backupsDir       = "backups"
	backupPrefix     = "signatories_backup_"
	backupTimeLayout = "20060102_150405"
	backupKeep       = 5
)

// fileEntry is the on-disk shape of one roster entry.
type fileEntry struct {
	MaxAmount          float64 `json:"max_amount"`
	SignatureImagePath string  `json:"signature_image_path,omitempty"`
}

// FileStore persists the roster as a JSON file under a data directory, with
// reference signature images alongside and timestamped backups of every
// superseded registry file.
//
// Layout under the data directory:
//
//	authorized_signatories.json
//	signatures/<name>_signature.{png,jpg}
//	backups/signatories_backup_<timestamp>.json
type FileStore struct {
	mu      sync.RWMutex
	dir     string
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger used for non-fatal load and backup warnings.
func WithFileLogger(log *slog.Logger) FileOption {
	return func(f *FileStore) {
		if log != nil {
			f.log = log
		}
	}
}

// WithFileMetrics enables backup failure counting.
func WithFileMetrics(m *metrics.Metrics) FileOption {
	return func(f *FileStore) {
		f.metrics = m
	}
}

// WithFileClock overrides the clock used for backup timestamps.
func WithFileClock(now func() time.Time) FileOption {
	return func(f *FileStore) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFileStore creates the data directory tree if needed.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	f := &FileStore{
		dir: dir,
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, sub := range []string{dir, filepath.Join(dir, signaturesDir), filepath.Join(dir, backupsDir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, domerrors.Wrap(domerrors.CodeInternal, "create registry directory", err)
		}
	}
	return f, nil
}

// Load reads the registry file and decodes every referenced signature image.
// A missing file yields an empty snapshot. An entry whose image path is
// missing or undecodable is kept with ReferenceBroken set; the limit stays
// enforceable even when the visual reference is gone.
func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.registryPath())
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, domerrors.Wrap(domerrors.CodeInternal, "read registry file", err)
	}

	var raw map[string]fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domerrors.Wrap(domerrors.CodeInternal, "parse registry file", err)
	}

	snap := make(Snapshot, len(raw))
	for name, entry := range raw {
		sig := Signatory{
			Name:          name,
			MaxAmount:     entry.MaxAmount,
			ReferencePath: entry.SignatureImagePath,
		}
		if entry.SignatureImagePath != "" {
			img, err := imaging.OpenFile(entry.SignatureImagePath)
			if err != nil {
				sig.ReferenceBroken = true
				f.log.Warn("reference signature unreadable",
					"signatory", name,
					"path", entry.SignatureImagePath,
					"error", err)
			} else {
				sig.Reference = img
			}
		}
		snap[name] = sig
	}
	return snap, nil
}

// Save backs up the current registry file, re-persists every loaded reference
// image, then replaces the registry file atomically (write to a temp file in
// the same directory, fsync, rename). A crash mid-save leaves either the old
// file or the new one, never a torn write.
func (f *FileStore) Save(_ context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.backup()

	raw := make(map[string]fileEntry, len(snap))
	for name, sig := range snap {
		entry := fileEntry{MaxAmount: sig.MaxAmount}
		if sig.Reference != nil {
			path, err := f.persistReference(sig)
			if err != nil {
				f.log.Warn("persist reference signature",
					"signatory", name,
					"error", err)
			} else {
				entry.SignatureImagePath = path
			}
		}
		raw[name] = entry
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return domerrors.Wrap(domerrors.CodeInternal, "encode registry file", err)
	}
	return f.writeAtomic(f.registryPath(), data)
}

func (f *FileStore) registryPath() string {
	return filepath.Join(f.dir, registryFileName)
}

// persistReference writes the reference image to the signatures directory.
// PNG when the source carried an alpha channel, JPEG otherwise.
func (f *FileStore) persistReference(sig Signatory) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	if sig.Reference.HadAlpha {
		data, err = sig.Reference.EncodePNG()
		ext = ".png"
	} else {
		data, err = sig.Reference.EncodeJPEG()
		ext = ".jpg"
	}
	if err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, signaturesDir, referenceFileName(sig.Name)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// referenceFileName derives a filesystem-safe stem from a signatory name.
func referenceFileName(name string) string {
	return strings.NewReplacer(" ", "_", "/", "_").Replace(name) + "_signature"
}

// backup copies the current registry file into the backups directory before
// it is replaced, then prunes old copies. Backup failures are logged, never
// fatal: losing a backup must not block a save.
func (f *FileStore) backup() {
	data, err := os.ReadFile(f.registryPath())
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		f.log.Warn("registry backup skipped", "error", err)
		f.metrics.IncrementBackupFailure()
		return
	}
	name := backupPrefix + f.now().Format(backupTimeLayout) + ".json"
	dst := filepath.Join(f.dir, backupsDir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		f.log.Warn("registry backup failed", "path", dst, "error", err)
		f.metrics.IncrementBackupFailure()
		return
	}
	f.pruneBackups()
}

// pruneBackups keeps the newest backupKeep files. The timestamp layout sorts
// lexicographically in chronological order.
func (f *FileStore) pruneBackups() {
	dir := filepath.Join(f.dir, backupsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= backupKeep {
		return
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-backupKeep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			f.log.Debug("prune backup", "name", name, "error", err)
		}
	}
}

func (f *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*.tmp")
	if err != nil {
		return domerrors.Wrap(domerrors.CodeInternal, "stage registry write", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return domerrors.Wrap(domerrors.CodeInternal, "stage registry write", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return domerrors.Wrap(domerrors.CodeInternal, "sync registry write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domerrors.Wrap(domerrors.CodeInternal, "close registry write", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return domerrors.Wrap(domerrors.CodeInternal, "replace registry file", err)
	}
	return nil
}
