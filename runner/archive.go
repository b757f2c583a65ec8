package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ArchiveStamp is the timestamp layout appended to archived file names.
const ArchiveStamp = "20060102_150405"

// Archiver moves processed files into a directory under timestamped names.
type Archiver struct {
	Dir    string
	Logger *zap.Logger
	Now    func() time.Time
}

// NewArchiver returns an archiver writing into dir.
func NewArchiver(dir string, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{Dir: dir, Logger: logger, Now: time.Now}
}

// ArchiveName returns <dir>/<name>_<YYYYMMDD_HHMMSS><ext> for path.
func ArchiveName(dir, path string, at time.Time) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+"_"+at.Format(ArchiveStamp)+ext)
}

// Archive moves every path into the archive directory and returns the new
// locations. A missing file is logged and skipped; it is not an error.
func (a *Archiver) Archive(paths ...string) ([]string, error) {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	at := a.Now()

	var moved []string
	var errs []error
	for _, p := range paths {
		dst := ArchiveName(a.Dir, p, at)
		err := os.Rename(p, dst)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			a.Logger.Warn("nothing to archive", zap.String("path", p))
		case err != nil:
			errs = append(errs, fmt.Errorf("archive %s: %w", p, err))
		default:
			a.Logger.Info("archived", zap.String("path", p), zap.String("to", dst))
			moved = append(moved, dst)
		}
	}
	return moved, errors.Join(errs...)
}
