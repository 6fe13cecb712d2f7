package cache

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Status describes a backing store at the moment it was inspected
type Status struct {
	// Location identifies the store
	Location string `json:"location"`

	// Exists is false when nothing has been written yet
	Exists bool `json:"exists"`

	// ModTime is when the source was last written
	ModTime time.Time `json:"mod_time"`

	// Age is the time elapsed since ModTime
	Age time.Duration `json:"age"`

	// MaxAge is the freshness window; zero never expires
	MaxAge time.Duration `json:"max_age"`

	// Fresh reports whether Compile would reuse the stored source
	Fresh bool `json:"fresh"`

	// Digest is the SHA256 of the stored source
	Digest string `json:"digest,omitempty"`
}

// Inspect reports the state of store without modifying it
func Inspect(store Store, maxAge time.Duration, clock clockwork.Clock) (Status, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	st := Status{Location: store.Location(), MaxAge: maxAge}

	modTime, exists, err := store.ModTime()
	if err != nil {
		return st, err
	}

	now := clock.Now()
	st.Exists = exists
	st.Fresh = Fresh(exists, modTime, maxAge, now)

	if !exists {
		return st, nil
	}

	src, err := store.Read()
	if err != nil {
		return st, err
	}

	st.ModTime = modTime
	st.Age = now.Sub(modTime)
	st.Digest = Digest(src)

	return st, nil
}

// Invalidate removes the stored source so the next Compile regenerates it
func Invalidate(store Store) error {
	return store.Remove()
}
