package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

// maxNameAttempts bounds the "name (n).ext" candidates tried for a taken filename
const maxNameAttempts = 1000

// FileSaver persists transfers into a directory. Begin reserves a free name, bytes go to a
// temp file next to it, and the content replaces the empty reservation on Commit.
type FileSaver struct {
	dir    string
	logger *zap.Logger
}

// NewFileSaver creates a new file saver rooted at dir
func NewFileSaver(dir string, logger *zap.Logger) *FileSaver {
	return &FileSaver{dir: dir, logger: logger}
}

// Dir returns the output directory
func (s *FileSaver) Dir() string {
	return s.dir
}

// Begin opens a pending file for filename
func (s *FileSaver) Begin(filename string) (domain.SaveSink, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return nil, fmt.Errorf("invalid filename: %q", filename)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path, err := s.reserve(name)
	if err != nil {
		return nil, err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("create pending file: %w", err)
	}

	return &fileSink{pending: pending, path: path, logger: s.logger}, nil
}

// reserve claims the first free name among name, "base (1).ext", "base (2).ext", ...
// by creating it exclusively. Existing files are never reused.
func (s *FileSaver) reserve(name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		path := filepath.Join(s.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("reserve %s: %w", candidate, err)
		}
		if i > 0 {
			s.logger.Debug("Filename taken, using next free name",
				zap.String("requested", name),
				zap.String("name", candidate))
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %q in %s", name, s.dir)
}

type fileSink struct {
	pending   *renameio.PendingFile
	path      string
	committed bool
	logger    *zap.Logger
}

func (f *fileSink) Write(p []byte) (int, error) {
	return f.pending.Write(p)
}

// Commit fsyncs and renames the pending file into place
func (f *fileSink) Commit() (string, error) {
	if err := f.pending.CloseAtomicallyReplace(); err != nil {
		f.pending.Cleanup()
		_ = os.Remove(f.path)
		return "", fmt.Errorf("atomically replace %s: %w", f.path, err)
	}
	f.committed = true
	f.logger.Debug("Saved file", zap.String("path", f.path))
	return f.path, nil
}

// Discard removes the pending file and releases the reserved name
func (f *fileSink) Discard() error {
	if f.committed {
		return nil
	}
	cleanupErr := f.pending.Cleanup()
	if cleanupErr != nil {
		f.logger.Debug("Cleanup pending file", zap.String("path", f.path), zap.Error(cleanupErr))
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release %s: %w", f.path, err)
	}
	return cleanupErr
}
