package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// FileStore keeps generated source in a single file. Writes go to a temporary
// file that is renamed over the target, so readers never see a partial file.
type FileStore struct {
	path  string
	fs    afero.Fs
	clock clockwork.Clock

	// guards Lock when the filesystem is not the real one
	mu sync.Mutex
}

// NewFileStore returns a store backed by path
func NewFileStore(path string, opts ...StoreOption) *FileStore {
	o := newStoreOptions(opts)

	return &FileStore{
		path:  path,
		fs:    o.fs,
		clock: o.clock,
	}
}

func (s *FileStore) Location() string {
	return s.path
}

func (s *FileStore) ModTime() (time.Time, bool, error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		// a file where a parent directory should be also means nothing is stored
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("failed to stat cache file: %w", err)
	}

	if info.IsDir() {
		return time.Time{}, false, fmt.Errorf("cache location %s is a directory", s.path)
	}

	return info.ModTime(), true, nil
}

func (s *FileStore) Read() ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, s.path)
		}

		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	return data, nil
}

func (s *FileStore) Write(src []byte) error {
	dir := filepath.Dir(s.path)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	now := s.clock.Now()
	if err := s.fs.Chtimes(s.path, now, now); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	return nil
}

func (s *FileStore) Remove() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}

	return nil
}

// Lock uses a sibling ".lock" file on the real filesystem and an in-process
// mutex otherwise.
func (s *FileStore) Lock() (func() error, error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		s.mu.Lock()
		return func() error {
			s.mu.Unlock()
			return nil
		}, nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create cache directory: %w", ErrCacheWrite, err)
	}

	fl := flock.New(s.path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("%w: failed to lock cache file: %w", ErrCacheWrite, err)
	}

	return fl.Unlock, nil
}
