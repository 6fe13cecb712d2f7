package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Norgate-AV/lazydi/internal/compiler"
	"github.com/Norgate-AV/lazydi/internal/container"
	"github.com/Norgate-AV/lazydi/internal/typespace"
	"github.com/Norgate-AV/lazydi/internal/values"
)

const cachePath = "/cache/app_compiled.go"

const appSource = `// Code generated by lazydi. DO NOT EDIT.

package app

type AppCompiled struct {
	*App

	services map[string]any
}

func (c *AppCompiled) GetMailer(name *string) *Mailer {
	return nil
}
`

const appSourceV2 = `// Code generated by lazydi. DO NOT EDIT.

package app

type AppCompiled struct {
	*App

	services map[string]any
}

func (c *AppCompiled) GetMailer(name *string) *Mailer {
	return nil
}

func (c *AppCompiled) GetQueue(name *string) *Queue {
	return nil
}
`

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// mockCompiler implements compiler.Compiler for testing
type mockCompiler struct {
	mock.Mock

	name string
}

func (m *mockCompiler) CompiledName() (string, error) {
	return m.name, nil
}

func (m *mockCompiler) CompiledTypeExists() bool {
	return m.Called().Bool(0)
}

func (m *mockCompiler) GenerateCode() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockCompiler) Compile() (compiler.Compiler, error) {
	args := m.Called()
	c, _ := args.Get(0).(compiler.Compiler)
	return c, args.Error(1)
}

func (m *mockCompiler) NewInstance(cfg values.Source) (*container.Container, error) {
	args := m.Called(cfg)
	c, _ := args.Get(0).(*container.Container)
	return c, args.Error(1)
}

type fixture struct {
	inner *mockCompiler
	fs    afero.Fs
	clock *clockwork.FakeClock
	store *FileStore
	space *typespace.Space
}

func newFixture() *fixture {
	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(epoch)

	return &fixture{
		inner: &mockCompiler{name: "app.AppCompiled"},
		fs:    fs,
		clock: clock,
		store: NewFileStore(cachePath, WithFs(fs), WithStoreClock(clock)),
		space: typespace.New(),
	}
}

func (f *fixture) compiler(t *testing.T, maxAge time.Duration) *Compiler {
	t.Helper()

	c, err := NewCompiler(f.inner, f.store, maxAge, WithClock(f.clock), WithSpace(f.space))
	require.NoError(t, err)

	return c
}

func (f *fixture) stored(t *testing.T) string {
	t.Helper()

	data, err := afero.ReadFile(f.fs, cachePath)
	require.NoError(t, err)

	return string(data)
}

// expectLoad makes the inner compiler report the type missing
func (f *fixture) expectLoad() {
	f.inner.On("CompiledTypeExists").Return(false).Once()
}

func TestNewCompiler_RejectsNegativeMaxAge(t *testing.T) {
	f := newFixture()

	_, err := NewCompiler(f.inner, f.store, -10*time.Second)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	f.inner.AssertNotCalled(t, "CompiledTypeExists")
	exists, _ := afero.Exists(f.fs, cachePath)
	assert.False(t, exists)
}

func TestCompiler_CompiledTypeExistsDelegates(t *testing.T) {
	f := newFixture()
	c := f.compiler(t, 300*time.Second)

	f.inner.On("CompiledTypeExists").Return(false).Once()
	assert.False(t, c.CompiledTypeExists())

	f.inner.On("CompiledTypeExists").Return(true).Once()
	assert.True(t, c.CompiledTypeExists())

	f.inner.AssertExpectations(t)
}

func TestCompiler_CompileWithoutCache(t *testing.T) {
	f := newFixture()
	c := f.compiler(t, 300*time.Second)

	f.expectLoad()
	f.inner.On("GenerateCode").Return(appSource, nil).Once()

	got, err := c.Compile()
	require.NoError(t, err)
	assert.Same(t, c, got)

	assert.Equal(t, appSource, f.stored(t))
	assert.True(t, f.space.Has("app.AppCompiled"))
	f.inner.AssertExpectations(t)

	info, err := f.fs.Stat(cachePath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(epoch))
}

func TestCompiler_Freshness(t *testing.T) {
	tests := []struct {
		name       string
		maxAge     time.Duration
		elapsed    time.Duration
		regenerate bool
	}{
		{"within max age", 3 * time.Second, 1 * time.Second, false},
		{"past max age", 3 * time.Second, 5 * time.Second, true},
		{"exactly max age", 3 * time.Second, 3 * time.Second, true},
		{"zero max age never expires", 0, 30000 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			require.NoError(t, f.store.Write([]byte(appSource)))

			f.clock.Advance(tt.elapsed)
			c := f.compiler(t, tt.maxAge)

			f.expectLoad()
			if tt.regenerate {
				f.inner.On("GenerateCode").Return(appSourceV2, nil).Once()
			}

			_, err := c.Compile()
			require.NoError(t, err)

			f.inner.AssertExpectations(t)

			def, err := f.space.Lookup("app.AppCompiled")
			require.NoError(t, err)

			if tt.regenerate {
				assert.Equal(t, Regenerated, c.Outcome())
				assert.Equal(t, appSourceV2, f.stored(t), "store must be overwritten")
				assert.Len(t, def.Services, 2)
				return
			}

			f.inner.AssertNotCalled(t, "GenerateCode")
			assert.Equal(t, Hit, c.Outcome())
			assert.Equal(t, appSource, f.stored(t))
			assert.Len(t, def.Services, 1)

			info, err := f.fs.Stat(cachePath)
			require.NoError(t, err)
			assert.True(t, info.ModTime().Equal(epoch), "fresh store must not be rewritten")
		})
	}
}

func TestCompiler_OverwriteTruncates(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSourceV2)))
	f.clock.Advance(time.Hour)

	c := f.compiler(t, time.Minute)
	f.expectLoad()
	f.inner.On("GenerateCode").Return(appSource, nil).Once()

	_, err := c.Compile()
	require.NoError(t, err)

	assert.Equal(t, appSource, f.stored(t), "shorter source must not leave a tail behind")
}

func TestCompiler_CannotCompileTwice(t *testing.T) {
	f := newFixture()
	c := f.compiler(t, 300*time.Second)

	f.inner.On("CompiledTypeExists").Return(true).Once()

	_, err := c.Compile()
	assert.ErrorIs(t, err, compiler.ErrAlreadyCompiled)
	assert.EqualError(t, err, "cannot recompile already compiled container: app.AppCompiled")

	f.inner.AssertNotCalled(t, "GenerateCode")
	exists, _ := afero.Exists(f.fs, cachePath)
	assert.False(t, exists)
}

func TestCompiler_GenerateCodeBypassesCache(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSource)))

	c := f.compiler(t, 0)
	f.inner.On("GenerateCode").Return(appSourceV2, nil).Once()

	src, err := c.GenerateCode()
	require.NoError(t, err)
	assert.Equal(t, appSourceV2, src)
	assert.Equal(t, appSource, f.stored(t))
	assert.False(t, f.space.Has("app.AppCompiled"))
}

func TestCompiler_NewInstanceDelegates(t *testing.T) {
	f := newFixture()
	c := f.compiler(t, 0)

	cfg := values.Map{"test": "something"}
	want := &container.Container{}
	f.inner.On("NewInstance", cfg).Return(want, nil).Once()

	got, err := c.NewInstance(cfg)
	require.NoError(t, err)
	assert.Same(t, want, got)
	f.inner.AssertExpectations(t)
}

func TestCompiler_GenerateFailure(t *testing.T) {
	f := newFixture()
	c := f.compiler(t, 0)

	f.inner.On("CompiledTypeExists").Return(false).Once()
	f.inner.On("GenerateCode").Return("", compiler.ErrTooManyParameters).Once()

	_, err := c.Compile()
	assert.ErrorIs(t, err, compiler.ErrTooManyParameters)

	exists, _ := afero.Exists(f.fs, cachePath)
	assert.False(t, exists, "nothing is written when generation fails")
	assert.Empty(t, f.space.Names())
}

func TestCompiler_WriteFailure(t *testing.T) {
	f := newFixture()
	store := NewFileStore(cachePath, WithFs(afero.NewReadOnlyFs(f.fs)), WithStoreClock(f.clock))

	c, err := NewCompiler(f.inner, store, 0, WithSpace(f.space))
	require.NoError(t, err)

	f.inner.On("CompiledTypeExists").Return(false).Once()
	f.inner.On("GenerateCode").Return(appSource, nil).Once()

	_, err = c.Compile()
	assert.ErrorIs(t, err, ErrCacheWrite)
	assert.Empty(t, f.space.Names())
}

// lockFailStore is a store whose lock can never be taken
type lockFailStore struct {
	Store
	locks int
}

func (s *lockFailStore) Lock() (func() error, error) {
	s.locks++
	return nil, fmt.Errorf("%w: read-only", ErrCacheWrite)
}

func TestCompiler_FreshStoreNeedsNoLock(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSource)))
	f.clock.Advance(time.Second)

	store := &lockFailStore{Store: f.store}
	c, err := NewCompiler(f.inner, store, time.Minute, WithClock(f.clock), WithSpace(f.space))
	require.NoError(t, err)

	f.expectLoad()

	_, err = c.Compile()
	require.NoError(t, err)
	assert.Equal(t, 0, store.locks)
	assert.Equal(t, Hit, c.Outcome())
	assert.True(t, f.space.Has("app.AppCompiled"))
}

func TestCompiler_StaleStoreNeedsLock(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSource)))
	f.clock.Advance(time.Hour)

	store := &lockFailStore{Store: f.store}
	c, err := NewCompiler(f.inner, store, time.Minute, WithClock(f.clock), WithSpace(f.space))
	require.NoError(t, err)

	f.expectLoad()

	_, err = c.Compile()
	assert.ErrorIs(t, err, ErrCacheWrite)
	assert.Equal(t, 1, store.locks)
	f.inner.AssertNotCalled(t, "GenerateCode")
	assert.Empty(t, f.space.Names())
}

// racingStore becomes fresh while the compiler waits for its lock
type racingStore struct {
	*FileStore
	src []byte
}

func (s *racingStore) Lock() (func() error, error) {
	unlock, err := s.FileStore.Lock()
	if err != nil {
		return nil, err
	}

	return unlock, s.FileStore.Write(s.src)
}

func TestCompiler_RechecksUnderLock(t *testing.T) {
	f := newFixture()
	store := &racingStore{FileStore: f.store, src: []byte(appSource)}

	c, err := NewCompiler(f.inner, store, time.Minute, WithClock(f.clock), WithSpace(f.space))
	require.NoError(t, err)

	f.expectLoad()

	_, err = c.Compile()
	require.NoError(t, err)
	f.inner.AssertNotCalled(t, "GenerateCode")
	assert.Equal(t, Hit, c.Outcome())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "hit", Hit.String())
	assert.Equal(t, "regenerated", Regenerated.String())
	assert.Equal(t, "not compiled", NotCompiled.String())
}

func TestCompiler_MismatchedStore(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSource)))

	f.inner.name = "app.OtherCompiled"
	c := f.compiler(t, 0)
	f.expectLoad()

	_, err := c.Compile()
	assert.ErrorIs(t, err, ErrCacheMismatch)
	assert.Contains(t, err.Error(), "declares app.AppCompiled, want app.OtherCompiled")
	assert.Empty(t, f.space.Names(), "a mismatched store must not be loaded")
	assert.Equal(t, NotCompiled, c.Outcome())
}

func TestCompiler_MalformedStore(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte("package app\n\nfunc broken(")))

	c := f.compiler(t, 0)
	f.expectLoad()

	_, err := c.Compile()
	assert.ErrorIs(t, err, typespace.ErrMalformedSource)
	assert.Empty(t, f.space.Names())
}

func TestCompiler_LoadIsRepeatable(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSource)))

	_, err := f.space.Define(appSource)
	require.NoError(t, err)

	c := f.compiler(t, 0)
	f.expectLoad()

	_, err = c.Compile()
	assert.NoError(t, err, "loading an already loaded definition must not fail")
}

func TestCompiler_Logs(t *testing.T) {
	f := newFixture()
	core, logs := observer.New(zap.DebugLevel)

	c, err := NewCompiler(f.inner, f.store, time.Minute, WithClock(f.clock), WithSpace(f.space), WithLogger(zap.New(core)))
	require.NoError(t, err)

	f.expectLoad()
	f.inner.On("GenerateCode").Return(appSource, nil).Once()

	_, err = c.Compile()
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("cache regenerated").Len())
	assert.Equal(t, 1, logs.FilterMessage("loaded cached container").Len())
	assert.Equal(t, 0, logs.FilterMessage("cache hit").Len())
}

func TestFresh(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		age    time.Duration
		maxAge time.Duration
		want   bool
	}{
		{"missing", false, 0, 0, false},
		{"missing with max age", false, 0, time.Hour, false},
		{"no expiry", true, 1000 * time.Hour, 0, true},
		{"young", true, time.Second, 3 * time.Second, true},
		{"old", true, 5 * time.Second, 3 * time.Second, false},
		{"boundary", true, 3 * time.Second, 3 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fresh(tt.exists, epoch, tt.maxAge, epoch.Add(tt.age)))
		})
	}
}

func TestInspect(t *testing.T) {
	f := newFixture()

	st, err := Inspect(f.store, 3*time.Second, f.clock)
	require.NoError(t, err)
	assert.Equal(t, Status{Location: cachePath, MaxAge: 3 * time.Second}, st)

	require.NoError(t, f.store.Write([]byte(appSource)))
	f.clock.Advance(2 * time.Second)

	st, err = Inspect(f.store, 3*time.Second, f.clock)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.True(t, st.Fresh)
	assert.Equal(t, 2*time.Second, st.Age)
	assert.Equal(t, Digest([]byte(appSource)), st.Digest)

	f.clock.Advance(2 * time.Second)

	st, err = Inspect(f.store, 3*time.Second, f.clock)
	require.NoError(t, err)
	assert.False(t, st.Fresh)
}

func TestInvalidate(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write([]byte(appSource)))

	require.NoError(t, Invalidate(f.store))
	require.NoError(t, Invalidate(f.store), "invalidating twice is fine")

	c := f.compiler(t, 0)
	f.expectLoad()
	f.inner.On("GenerateCode").Return(appSourceV2, nil).Once()

	_, err := c.Compile()
	require.NoError(t, err)
	assert.Equal(t, appSourceV2, f.stored(t))
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
	assert.Equal(t, Digest([]byte("a")), Digest([]byte("a")))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidConfiguration, ErrCacheWrite, ErrStoreMissing, ErrCacheMismatch}

	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b))
		}
	}
}
