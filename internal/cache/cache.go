// Package cache persists generated container source so later processes can
// load it without running the generator again.
//
// The cached compiler wraps another compiler. On Compile it decides, from the
// age of the stored source alone, whether to reuse it or to regenerate and
// overwrite it, then loads the stored source into the typespace. A changed
// blueprint is not detected; operators invalidate the store instead.
package cache

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Norgate-AV/lazydi/internal/compiler"
	"github.com/Norgate-AV/lazydi/internal/container"
	"github.com/Norgate-AV/lazydi/internal/typespace"
	"github.com/Norgate-AV/lazydi/internal/values"
)

// Option configures a cached Compiler
type Option func(*Compiler)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Compiler) {
		c.clock = clock
	}
}

// WithSpace overrides the typespace cached sources are loaded into
func WithSpace(space *typespace.Space) Option {
	return func(c *Compiler) {
		c.space = space
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// Compiler decorates a compiler with a persisted source cache
type Compiler struct {
	compiler compiler.Compiler
	store    Store
	maxAge   time.Duration
	clock    clockwork.Clock
	space    *typespace.Space
	log      *zap.Logger
	outcome  Outcome
}

var _ compiler.Compiler = (*Compiler)(nil)

// NewCompiler wraps inner. A zero maxAge keeps the cache forever; a negative
// one is rejected. Sources load into inner's typespace when it exposes one.
func NewCompiler(inner compiler.Compiler, store Store, maxAge time.Duration, opts ...Option) (*Compiler, error) {
	if maxAge < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfiguration, maxAge)
	}

	c := &Compiler{
		compiler: inner,
		store:    store,
		maxAge:   maxAge,
		clock:    clockwork.NewRealClock(),
		space:    typespace.Default,
		log:      zap.NewNop(),
	}

	if s, ok := inner.(interface{ Space() *typespace.Space }); ok {
		c.space = s.Space()
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Outcome is what the last successful Compile did with the store
type Outcome int

const (
	// NotCompiled means Compile has not succeeded yet
	NotCompiled Outcome = iota

	// Hit means fresh stored source was loaded as is
	Hit

	// Regenerated means the store was missing or stale and was rewritten
	Regenerated
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Regenerated:
		return "regenerated"
	default:
		return "not compiled"
	}
}

func (c *Compiler) CompiledName() (string, error) {
	return c.compiler.CompiledName()
}

func (c *Compiler) CompiledTypeExists() bool {
	return c.compiler.CompiledTypeExists()
}

// GenerateCode always regenerates, bypassing the cache
func (c *Compiler) GenerateCode() (string, error) {
	return c.compiler.GenerateCode()
}

func (c *Compiler) NewInstance(cfg values.Source) (*container.Container, error) {
	return c.compiler.NewInstance(cfg)
}

// Outcome reports whether the last successful Compile reused the store
func (c *Compiler) Outcome() Outcome {
	return c.outcome
}

// Compile refreshes the store if it is stale and loads its contents. The
// typespace is only changed once the stored source is known to declare the
// wrapped compiler's derived type.
func (c *Compiler) Compile() (compiler.Compiler, error) {
	name, err := c.compiler.CompiledName()
	if err != nil {
		return nil, err
	}

	if c.compiler.CompiledTypeExists() {
		return nil, fmt.Errorf("%w: %s", compiler.ErrAlreadyCompiled, name)
	}

	outcome, err := c.refresh()
	if err != nil {
		return nil, err
	}

	src, err := c.store.Read()
	if err != nil {
		return nil, err
	}

	parsed, err := typespace.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.store.Location(), err)
	}

	if parsed.QualifiedName() != name {
		return nil, fmt.Errorf("%w: %s declares %s, want %s", ErrCacheMismatch, c.store.Location(), parsed.QualifiedName(), name)
	}

	def, err := c.space.Require(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.store.Location(), err)
	}

	c.outcome = outcome
	c.log.Debug("loaded cached container",
		zap.String("type", def.QualifiedName()),
		zap.String("location", c.store.Location()),
		zap.Stringer("outcome", outcome),
	)

	return c, nil
}

// refresh regenerates the store when it is missing or expired. A fresh store
// is used without taking the lock, so read-only deployments can ship one;
// otherwise freshness is checked again under the lock before regenerating.
func (c *Compiler) refresh() (Outcome, error) {
	fresh, err := c.fresh()
	if err != nil {
		return NotCompiled, err
	}

	if fresh {
		c.log.Debug("cache hit", zap.String("location", c.store.Location()))
		return Hit, nil
	}

	return c.regenerate()
}

func (c *Compiler) regenerate() (outcome Outcome, err error) {
	unlock, err := c.store.Lock()
	if err != nil {
		return NotCompiled, err
	}
	defer multierr.AppendFunc(&err, unlock)

	// another process may have regenerated while we waited
	fresh, err := c.fresh()
	if err != nil {
		return NotCompiled, err
	}

	if fresh {
		c.log.Debug("cache hit", zap.String("location", c.store.Location()))
		return Hit, nil
	}

	src, err := c.compiler.GenerateCode()
	if err != nil {
		return NotCompiled, err
	}

	if err := c.store.Write([]byte(src)); err != nil {
		return NotCompiled, err
	}

	c.log.Debug("cache regenerated", zap.String("location", c.store.Location()))

	return Regenerated, nil
}

func (c *Compiler) fresh() (bool, error) {
	modTime, exists, err := c.store.ModTime()
	if err != nil {
		return false, err
	}

	return Fresh(exists, modTime, c.maxAge, c.clock.Now()), nil
}

// Fresh reports whether stored source written at modTime may be reused at now
func Fresh(exists bool, modTime time.Time, maxAge time.Duration, now time.Time) bool {
	if !exists {
		return false
	}

	if maxAge == 0 {
		return true
	}

	return now.Sub(modTime) < maxAge
}
