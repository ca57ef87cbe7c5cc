package feature

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrewBlox/brewblox-service/errors"
)

// recordingFeature tracks lifecycle invocations in a shared event log
type recordingFeature struct {
	name        string
	events      *[]string
	startupErr  error
	shutdownErr error
	startups    int
	shutdowns   int
}

func (f *recordingFeature) Name() string { return f.name }

func (f *recordingFeature) Startup(_ context.Context) error {
	f.startups++
	*f.events = append(*f.events, "start:"+f.name)
	return f.startupErr
}

func (f *recordingFeature) Shutdown(_ context.Context) error {
	f.shutdowns++
	*f.events = append(*f.events, "stop:"+f.name)
	return f.shutdownErr
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.Default())
}

func TestAddAndGet(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	a := &recordingFeature{name: "a", events: &events}
	b := &recordingFeature{name: "b", events: &events}

	require.NoError(t, r.Add("a", a))
	require.NoError(t, r.Add("b", b))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got, "Get must return the exact registered instance")

	got, err = r.Get("b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestGetMissing(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Get("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFeatureNotFound)
}

func TestAddDuplicate(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	require.NoError(t, r.Add("dup", &recordingFeature{name: "dup", events: &events}))

	err := r.Add("dup", &recordingFeature{name: "dup2", events: &events})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateFeature)

	// Original registration is untouched
	got, err := r.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, "dup", got.(*recordingFeature).name)
}

func TestAddValidation(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	assert.Error(t, r.Add("", &recordingFeature{name: "x", events: &events}))
	assert.Error(t, r.Add("x", nil))
}

func TestStartAllOrder(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	for _, name := range []string{"one", "two", "three"} {
		require.NoError(t, r.Add(name, &recordingFeature{name: name, events: &events}))
	}

	require.NoError(t, r.StartAll(context.Background()))
	assert.Equal(t, []string{"start:one", "start:two", "start:three"}, events)

	for _, name := range []string{"one", "two", "three"} {
		state, err := r.State(name)
		require.NoError(t, err)
		assert.Equal(t, StateStarted, state)
	}
}

func TestStartAllFailFast(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	ok := &recordingFeature{name: "ok", events: &events}
	bad := &recordingFeature{name: "bad", events: &events, startupErr: stderrors.New("no broker")}
	never := &recordingFeature{name: "never", events: &events}

	require.NoError(t, r.Add("ok", ok))
	require.NoError(t, r.Add("bad", bad))
	require.NoError(t, r.Add("never", never))

	err := r.StartAll(context.Background())
	require.Error(t, err)

	var se *errors.StartupError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, "bad", se.Feature)

	// Features after the failing one never have startup invoked
	assert.Equal(t, []string{"start:ok", "start:bad"}, events)
	assert.Equal(t, 0, never.startups)

	state, _ := r.State("bad")
	assert.Equal(t, StateFailed, state)
	state, _ = r.State("never")
	assert.Equal(t, StateUnstarted, state)
}

func TestStartTwice(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	f := &recordingFeature{name: "f", events: &events}
	require.NoError(t, r.Add("f", f))
	require.NoError(t, r.StartAll(context.Background()))

	err := r.StartAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
	assert.Equal(t, 1, f.startups, "startup must be invoked exactly once")
}

func TestStopAllReverseOrder(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	for _, name := range []string{"one", "two", "three"} {
		require.NoError(t, r.Add(name, &recordingFeature{name: name, events: &events}))
	}
	require.NoError(t, r.StartAll(context.Background()))

	events = events[:0]
	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, []string{"stop:three", "stop:two", "stop:one"}, events)
}

func TestStopAllBestEffort(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	first := &recordingFeature{name: "first", events: &events}
	failing := &recordingFeature{name: "failing", events: &events, shutdownErr: stderrors.New("stuck")}
	last := &recordingFeature{name: "last", events: &events}

	require.NoError(t, r.Add("first", first))
	require.NoError(t, r.Add("failing", failing))
	require.NoError(t, r.Add("last", last))
	require.NoError(t, r.StartAll(context.Background()))

	events = events[:0]
	err := r.StopAll(context.Background())
	require.Error(t, err)

	var she *errors.ShutdownError
	require.True(t, stderrors.As(err, &she))
	assert.Equal(t, "failing", she.Feature)

	// Every feature got its shutdown attempt despite the failure in between
	assert.Equal(t, []string{"stop:last", "stop:failing", "stop:first"}, events)
	assert.Equal(t, 1, first.shutdowns)
	assert.Equal(t, 1, failing.shutdowns)
	assert.Equal(t, 1, last.shutdowns)
}

func TestStopUnstartedIsNoop(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	f := &recordingFeature{name: "idle", events: &events}
	require.NoError(t, r.Add("idle", f))

	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, 0, f.shutdowns)

	state, err := r.State("idle")
	require.NoError(t, err)
	assert.Equal(t, StateUnstarted, state)
}

func TestShutdownAtMostOnce(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	f := &recordingFeature{name: "f", events: &events}
	require.NoError(t, r.Add("f", f))
	require.NoError(t, r.StartAll(context.Background()))

	require.NoError(t, r.StopAll(context.Background()))
	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, 1, f.shutdowns)
}

func TestFailedStartupStillGetsShutdownAttempt(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	bad := &recordingFeature{name: "bad", events: &events, startupErr: stderrors.New("nope")}
	require.NoError(t, r.Add("bad", bad))
	require.Error(t, r.StartAll(context.Background()))

	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, 1, bad.shutdowns, "failed features may hold partial resources")
}

func TestStartupObserver(t *testing.T) {
	r := newTestRegistry()
	events := []string{}

	observed := map[string]time.Duration{}
	r.OnStartup(func(name string, elapsed time.Duration) {
		observed[name] = elapsed
	})

	ok := &recordingFeature{name: "ok", events: &events}
	bad := &recordingFeature{name: "bad", events: &events, startupErr: stderrors.New("boom")}
	require.NoError(t, r.Add("ok", ok))
	require.NoError(t, r.Add("bad", bad))

	require.Error(t, r.StartAll(context.Background()))

	// Both the successful and the failed startup are timed
	require.Contains(t, observed, "ok")
	require.Contains(t, observed, "bad")
	assert.GreaterOrEqual(t, observed["ok"], time.Duration(0))
	assert.GreaterOrEqual(t, observed["bad"], time.Duration(0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unstarted", StateUnstarted.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
