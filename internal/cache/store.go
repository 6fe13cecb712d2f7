package cache

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// Store holds the most recently generated source of one container
type Store interface {
	// Location identifies the store in messages
	Location() string

	// ModTime returns when the source was last written and whether it exists
	ModTime() (time.Time, bool, error)

	// Read returns the stored source; ErrStoreMissing if nothing was written
	Read() ([]byte, error)

	// Write replaces the whole stored source
	Write(src []byte) error

	// Remove deletes the stored source; removing a missing store is not an error
	Remove() error

	// Lock takes an exclusive lock across processes and returns its release.
	// Failures wrap ErrCacheWrite; the lock is only needed to write.
	Lock() (func() error, error)
}

type storeOptions struct {
	fs    afero.Fs
	clock clockwork.Clock
}

// StoreOption configures a FileStore or BoltStore
type StoreOption func(*storeOptions)

// WithFs sets the filesystem a FileStore writes to
func WithFs(fs afero.Fs) StoreOption {
	return func(o *storeOptions) {
		o.fs = fs
	}
}

// WithStoreClock sets the clock used to stamp writes
func WithStoreClock(clock clockwork.Clock) StoreOption {
	return func(o *storeOptions) {
		o.clock = clock
	}
}

func newStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{
		fs:    afero.NewOsFs(),
		clock: clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
