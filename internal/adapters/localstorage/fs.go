package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"mergeanddown/internal/core/domain"
)

const artifactPrefix = "mergeanddown"

// LocalStorage implements ports.ArtifactStore on a local scratch directory.
type LocalStorage struct {
	BaseDir string

	// live holds paths allocated and not yet released. Sweep never touches them.
	live sync.Map
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &LocalStorage{BaseDir: baseDir}
}

// Init creates the scratch directory.
func (s *LocalStorage) Init() error {
	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create scratch directory %s", s.BaseDir)
	}
	return nil
}

// Allocate reserves <prefix>-<token>-<role><ext>. O_EXCL makes a name clash
// an error instead of two jobs silently sharing a file.
func (s *LocalStorage) Allocate(ctx context.Context, token, role, ext string) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.ArtifactPath(token, role, ext)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reserve artifact %s", path)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrapf(err, "failed to reserve artifact %s", path)
	}
	s.live.Store(path, struct{}{})
	return domain.NewArtifact(role, path, s.release), nil
}

// Create opens the artifact for writing.
func (s *LocalStorage) Create(a *domain.Artifact) (io.WriteCloser, error) {
	file, err := os.OpenFile(a.Path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s artifact for writing", a.Role)
	}
	return file, nil
}

// Open opens the artifact for reading.
func (s *LocalStorage) Open(a *domain.Artifact) (io.ReadCloser, int64, error) {
	file, err := os.Open(a.Path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to open %s artifact", a.Role)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, errors.Wrapf(err, "failed to stat %s artifact", a.Role)
	}
	return file, info.Size(), nil
}

// ArtifactPath returns the path an artifact for token and role lives at.
func (s *LocalStorage) ArtifactPath(token, role, ext string) string {
	return filepath.Join(s.BaseDir, fmt.Sprintf("%s-%s-%s%s", artifactPrefix, token, role, ext))
}

// Sweep removes artifacts last modified before cutoff. Files this instance
// allocated and has not released belong to a running job and are skipped.
func (s *LocalStorage) Sweep(cutoff time.Time) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.BaseDir, artifactPrefix+"-*"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list artifacts")
	}

	var removed []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if _, owned := s.live.Load(path); owned {
			continue
		}
		if err := removeFile(path); err != nil {
			return removed, errors.Wrapf(err, "failed to remove stale artifact %s", path)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func (s *LocalStorage) release(path string) error {
	s.live.Delete(path)
	return removeFile(path)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
