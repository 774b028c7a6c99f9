package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/pas2cs/internal/debounce"
	"codeberg.org/snonux/pas2cs/internal/exporter"
	"codeberg.org/snonux/pas2cs/internal/importer"
	"codeberg.org/snonux/pas2cs/internal/store"
	"codeberg.org/snonux/pas2cs/internal/testutil"
	"codeberg.org/snonux/pas2cs/internal/transpile"
)

// recordingStore logs every write on top of a MemoryStore.
type recordingStore struct {
	*store.MemoryStore

	mu     sync.Mutex
	writes []string
}

func (s *recordingStore) Set(key, value string) error {
	s.mu.Lock()
	s.writes = append(s.writes, key+"="+value)
	s.mu.Unlock()
	return s.MemoryStore.Set(key, value)
}

func (s *recordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// trackingDispatcher counts the functions that finished on the loop.
type trackingDispatcher struct {
	loop *Loop
	ran  atomic.Int64
}

func (d *trackingDispatcher) Dispatch(fn func()) {
	d.loop.Dispatch(func() {
		fn()
		d.ran.Add(1)
	})
}

type harness struct {
	t        *testing.T
	loop     *Loop
	dispatch *trackingDispatcher
	clock    *debounce.ManualClock
	store    *recordingStore
	client   *testutil.MockTranspiler
	exporter *testutil.MockExporter
	source   *MemoryEditor
	dest     *MemoryEditor
	c        *Controller
}

func newHarness(t *testing.T, seed map[string]string) *harness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mem := store.NewMemoryStore()
	for k, v := range seed {
		require.NoError(t, mem.Set(k, v))
	}

	h := &harness{
		t:        t,
		loop:     NewLoop(),
		clock:    debounce.NewManualClock(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
		store:    &recordingStore{MemoryStore: mem},
		client:   testutil.NewMockTranspiler(),
		exporter: &testutil.MockExporter{},
		source:   NewMemoryEditor(),
		dest:     NewMemoryEditor(),
	}
	h.dispatch = &trackingDispatcher{loop: h.loop}
	h.loop.Start(ctx)

	h.do(func() {
		c, err := New(Deps{
			Source:     h.source,
			Dest:       h.dest,
			Store:      h.store,
			Client:     h.client,
			Exporter:   h.exporter,
			Dispatcher: h.dispatch,
			Clock:      h.clock,
			Debounce:   time.Second,
		})
		require.NoError(t, err)
		h.c = c
	})
	t.Cleanup(func() { h.loop.Call(h.c.Close) })
	return h
}

func (h *harness) do(fn func()) {
	h.t.Helper()
	require.True(h.t, h.loop.Call(fn), "loop stopped")
}

func (h *harness) view() View {
	var v View
	h.do(func() { v = h.c.Snapshot() })
	return v
}

func (h *harness) typeSource(text string) {
	h.do(func() { h.source.SetValue(text) })
}

func (h *harness) transpile() {
	h.t.Helper()
	var err error
	h.do(func() { err = h.c.Transpile() })
	require.NoError(h.t, err)
}

func (h *harness) waitFor(cond func(View) bool) View {
	h.t.Helper()
	var v View
	require.Eventually(h.t, func() bool {
		v = h.view()
		return cond(v)
	}, 2*time.Second, 5*time.Millisecond)
	return v
}

func (h *harness) waitIdle() View {
	h.t.Helper()
	return h.waitFor(func(v View) bool { return v.State == Idle })
}

// settle waits until another dispatched completion has run since mark.
func (h *harness) settle(mark int64) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.dispatch.ran.Load() > mark
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) stored(key string) string {
	v, _, _ := h.store.Get(key)
	return v
}

func TestRestoreEmptyStore(t *testing.T) {
	h := newHarness(t, nil)

	v := h.view()
	assert.Equal(t, Idle, v.State)
	assert.False(t, v.DownloadEnabled)
	assert.True(t, v.CanTranspile)
	assert.Empty(t, h.source.Value())
	assert.Empty(t, h.dest.Value())
	assert.True(t, h.dest.ReadOnly())
	assert.Empty(t, h.store.Writes(), "restoring must not write")
}

func TestRestorePersistedSession(t *testing.T) {
	h := newHarness(t, map[string]string{
		store.KeySource:      testutil.SamplePascal,
		store.KeyDest:        testutil.SampleCSharp,
		store.KeyCanDownload: "true",
	})

	assert.Equal(t, testutil.SamplePascal, h.source.Value())
	assert.Equal(t, testutil.SampleCSharp, h.dest.Value())
	assert.True(t, h.view().DownloadEnabled)
	assert.Equal(t, Idle, h.view().State, "restoring the editors is not an edit")
}

func TestEditsAreDebounced(t *testing.T) {
	h := newHarness(t, nil)

	for _, text := range []string{"p", "pr", "pro"} {
		h.typeSource(text)
		h.clock.Advance(300 * time.Millisecond)
	}

	assert.Equal(t, Editing, h.view().State)
	assert.Empty(t, h.store.Writes())

	mark := h.dispatch.ran.Load()
	h.clock.Advance(time.Second)
	h.settle(mark)

	assert.Equal(t, []string{"sourcecode=pro"}, h.store.Writes())
	v := h.view()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, "Saved at 09:30:01", v.Status)
	assert.False(t, v.LastSaved.IsZero())
}

func TestEditSetsSourceEditor(t *testing.T) {
	h := newHarness(t, nil)

	h.do(func() { h.c.Edit("program X;") })

	assert.Equal(t, "program X;", h.source.Value())
	assert.Equal(t, Editing, h.view().State)
}

func TestTranspileSuccessThenDownload(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource(testutil.SamplePascal)
	h.transpile()

	v := h.view()
	assert.Equal(t, Transpiling, v.State)
	assert.False(t, v.CanTranspile)

	h.client.Next(t).Succeed(testutil.SampleCSharp)
	v = h.waitFor(func(v View) bool { return v.CanTranspile })

	assert.True(t, v.DownloadEnabled)
	assert.True(t, v.CanTranspile)
	assert.Equal(t, testutil.SampleCSharp, h.dest.Value())
	assert.Equal(t, testutil.SamplePascal, h.stored(store.KeySource))
	assert.Equal(t, testutil.SampleCSharp, h.stored(store.KeyDest))
	assert.Equal(t, "true", h.stored(store.KeyCanDownload))

	writes := h.store.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, "canDownload=true", writes[len(writes)-1], "gate is written last")

	var err error
	h.do(func() { err = h.c.Download() })
	require.NoError(t, err)
	assert.Equal(t, []testutil.SavedFile{{Filename: "pascal-to-csharp.cs", Content: testutil.SampleCSharp}}, h.exporter.Saved())
}

func TestTranspileReportedFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program Broken")
	h.transpile()

	h.client.Next(t).Fail("line 1: expected ';'")
	v := h.waitFor(func(v View) bool { return v.CanTranspile })

	assert.False(t, v.DownloadEnabled)
	assert.Equal(t, "line 1: expected ';'", h.dest.Value())
	assert.Equal(t, "false", h.stored(store.KeyCanDownload))

	var err error
	h.do(func() { err = h.c.Download() })
	assert.ErrorIs(t, err, ErrDownloadDisabled)
	assert.Empty(t, h.exporter.Saved())
}

func TestTranspileTransportErrorKeepsDestination(t *testing.T) {
	h := newHarness(t, map[string]string{
		store.KeySource:      "program A;",
		store.KeyDest:        "class A {}",
		store.KeyCanDownload: "true",
	})
	h.transpile()

	h.client.Next(t).Respond(transpile.Result{}, &transpile.TransportError{Backend: "http", Err: errors.New("connection refused")})
	v := h.waitIdle()

	assert.False(t, v.DownloadEnabled)
	assert.Contains(t, v.Status, "could not reach")
	assert.Equal(t, "class A {}", h.dest.Value())
	assert.Equal(t, "false", h.stored(store.KeyCanDownload))
	assert.Equal(t, "class A {}", h.stored(store.KeyDest))
}

func TestTranspileMalformedResponse(t *testing.T) {
	h := newHarness(t, nil)
	h.transpile()

	h.client.Next(t).Respond(transpile.Result{}, transpile.ErrMalformedResponse)
	v := h.waitIdle()

	assert.False(t, v.DownloadEnabled)
	assert.Contains(t, v.Status, "unexpected response")
}

func TestTranspileRejectsWhileBusy(t *testing.T) {
	h := newHarness(t, nil)
	h.transpile()

	var err error
	h.do(func() { err = h.c.Transpile() })
	assert.ErrorIs(t, err, ErrBusy)

	h.client.Next(t).Succeed("ok")
	h.waitIdle()
	assert.Len(t, h.client.Sources(), 1)
}

func TestTranspileCapturesSourceAtRequestTime(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program One;")
	h.transpile()
	h.typeSource("program Two;")

	assert.Equal(t, Transpiling, h.view().State, "transpiling outranks editing")

	call := h.client.Next(t)
	assert.Equal(t, "program One;", call.Source)
	call.Succeed("class One {}")
	h.waitFor(func(v View) bool { return v.CanTranspile })

	assert.Equal(t, "program Two;", h.source.Value(), "the editor keeps the newer text")
	assert.Equal(t, Editing, h.view().State)
}

func TestTranspileKeepsSourceSavedDuringRequest(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program One;")
	h.transpile()
	call := h.client.Next(t)

	h.typeSource("program Two;")
	mark := h.dispatch.ran.Load()
	h.clock.Advance(time.Second)
	h.settle(mark)
	require.Equal(t, "program Two;", h.stored(store.KeySource))

	call.Succeed("class One {}")
	v := h.waitIdle()

	assert.Equal(t, "program Two;", h.source.Value())
	assert.Equal(t, "program Two;", h.stored(store.KeySource), "a late reply must not revert the saved edit")
	assert.Equal(t, "class One {}", h.stored(store.KeyDest))
	assert.Equal(t, "true", h.stored(store.KeyCanDownload))
	assert.True(t, v.DownloadEnabled)
}

func TestTranspileKeepsSourceImportedDuringRequest(t *testing.T) {
	h := newHarness(t, nil)
	path := filepath.Join(t.TempDir(), "imported.pas")
	testutil.CreateTestFile(t, path, []byte("program Imported;"))

	h.typeSource("program One;")
	h.transpile()
	call := h.client.Next(t)

	h.do(func() { h.c.Import(importer.PathHandle(path)) })
	h.waitFor(func(v View) bool { return v.SourceName == "imported.pas" })
	require.Equal(t, "program Imported;", h.stored(store.KeySource))

	call.Succeed("class One {}")
	h.waitIdle()

	assert.Equal(t, "program Imported;", h.source.Value())
	assert.Equal(t, "program Imported;", h.stored(store.KeySource), "a late reply must not revert the import")
	assert.Equal(t, "class One {}", h.stored(store.KeyDest))
}

func TestTranspileSavesRequestSourceWhenUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program One;")
	h.transpile()

	h.client.Next(t).Succeed("class One {}")
	h.waitFor(func(v View) bool { return v.CanTranspile })

	assert.Equal(t, "program One;", h.stored(store.KeySource), "the reply commits the text it was built from")
	assert.Contains(t, h.store.Writes(), "sourcecode=program One;")
}

func TestGateFollowsLatestCycle(t *testing.T) {
	h := newHarness(t, nil)

	for _, tc := range []struct {
		succeed bool
		want    bool
	}{
		{succeed: true, want: true},
		{succeed: false, want: false},
		{succeed: true, want: true},
	} {
		h.transpile()
		call := h.client.Next(t)
		if tc.succeed {
			call.Succeed("class A {}")
		} else {
			call.Fail("error")
		}
		v := h.waitIdle()
		assert.Equal(t, tc.want, v.DownloadEnabled)
		assert.Equal(t, tc.want, h.stored(store.KeyCanDownload) == "true")
	}
}

func TestClearSupersedesInFlightTranspile(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program Slow;")
	h.transpile()
	call := h.client.Next(t)

	h.do(h.c.Clear)
	assert.True(t, h.view().CanTranspile)

	mark := h.dispatch.ran.Load()
	call.Succeed("class Slow {}")
	h.settle(mark)

	v := h.view()
	assert.False(t, v.DownloadEnabled)
	assert.Empty(t, h.dest.Value())
	assert.Empty(t, h.stored(store.KeyDest))
	assert.Equal(t, "false", h.stored(store.KeyCanDownload))
}

func TestClearIsIdempotent(t *testing.T) {
	h := newHarness(t, map[string]string{
		store.KeySource:      "program A;",
		store.KeyDest:        "class A {}",
		store.KeyCanDownload: "true",
	})

	h.do(h.c.Clear)
	first := h.view()
	firstStore := h.store.All()

	h.do(h.c.Clear)
	assert.Equal(t, first, h.view())
	assert.Equal(t, firstStore, h.store.All())

	assert.Equal(t, map[string]string{
		store.KeySource:      "",
		store.KeyDest:        "",
		store.KeyCanDownload: "false",
	}, firstStore)
	assert.Empty(t, h.source.Value())
	assert.Empty(t, h.dest.Value())
	assert.False(t, first.DownloadEnabled)
}

func TestClearCancelsPendingSave(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program Draft;")
	h.do(h.c.Clear)

	h.clock.Advance(5 * time.Second)

	v := h.view()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, "Cleared", v.Status)
	assert.Empty(t, h.stored(store.KeySource))
}

func TestDownloadExportFailure(t *testing.T) {
	h := newHarness(t, map[string]string{
		store.KeyDest:        "class A {}",
		store.KeyCanDownload: "true",
	})
	h.exporter.Err = errors.New("disk full")

	var err error
	h.do(func() { err = h.c.Download() })
	require.Error(t, err)
	assert.Contains(t, h.view().Status, "disk full")
	assert.True(t, h.view().DownloadEnabled, "a failed export does not close the gate")
}

func TestDeferredDownloadReportsOutcome(t *testing.T) {
	h := newHarness(t, map[string]string{
		store.KeyDest:        "class A {}",
		store.KeyCanDownload: "true",
	})
	h.exporter.Err = exporter.ErrDeferred

	var err error
	h.do(func() { err = h.c.Download() })
	require.NoError(t, err)
	assert.Equal(t, "Choose where to save pascal-to-csharp.cs", h.view().Status)

	h.do(func() { h.c.ExportFinished("", nil) })
	assert.Equal(t, "Download canceled", h.view().Status)

	h.do(func() { h.c.Edit("program A;") })
	assert.Equal(t, "Download canceled", h.view().Status, "later updates keep the real outcome")

	h.do(func() { h.c.ExportFinished("/home/u/A.cs", nil) })
	assert.Equal(t, "Saved to /home/u/A.cs", h.view().Status)

	h.do(func() { h.c.ExportFinished("", errors.New("permission denied")) })
	assert.Equal(t, "Download failed: permission denied", h.view().Status)
}

func TestStateIsEditingWhileSaveIsQueued(t *testing.T) {
	h := newHarness(t, nil)
	h.typeSource("program Queued;")

	// Hold the loop so the fired save cannot run yet.
	gate := make(chan struct{})
	h.loop.Dispatch(func() { <-gate })
	h.clock.Advance(time.Second)

	_, pending := h.c.saver.Pending()
	assert.False(t, pending, "the timer has fired")
	assert.Equal(t, Editing, h.c.State(), "the save has not been written yet")

	mark := h.dispatch.ran.Load()
	close(gate)
	h.settle(mark)

	assert.Equal(t, Idle, h.view().State)
	assert.Equal(t, "program Queued;", h.stored(store.KeySource))
}

func TestImportReplacesSource(t *testing.T) {
	h := newHarness(t, nil)
	path := filepath.Join(t.TempDir(), "hello.pas")
	testutil.CreateTestFile(t, path, []byte(testutil.SamplePascal))

	h.do(func() { h.c.Import(importer.PathHandle(path)) })
	v := h.waitIdle()

	assert.Equal(t, testutil.SamplePascal, h.source.Value())
	assert.Equal(t, testutil.SamplePascal, h.stored(store.KeySource), "imports are saved immediately")
	assert.Equal(t, "hello.pas", v.SourceName)
	assert.Equal(t, "Loaded hello.pas", v.Status)
}

func TestImportFailureKeepsSource(t *testing.T) {
	h := newHarness(t, map[string]string{store.KeySource: "program Keep;"})

	h.do(func() { h.c.Import(testutil.FailingHandle("locked.pas")) })
	v := h.waitIdle()

	assert.Equal(t, "program Keep;", h.source.Value())
	assert.Contains(t, v.Status, "Could not read locked.pas")
	assert.Empty(t, h.store.Writes())
}

func TestImportStateWhileReading(t *testing.T) {
	h := newHarness(t, nil)
	handle := testutil.NewBlockingHandle("slow.pas", "program Slow;")

	h.do(func() { h.c.Import(handle) })
	assert.Equal(t, Importing, h.view().State)

	handle.Release()
	h.waitIdle()
	assert.Equal(t, "program Slow;", h.source.Value())
}

func TestNewerImportSupersedesOlder(t *testing.T) {
	h := newHarness(t, nil)
	older := testutil.NewBlockingHandle("old.pas", "program Old;")
	newer := testutil.NewBlockingHandle("new.pas", "program New;")

	h.do(func() { h.c.Import(older) })
	h.do(func() { h.c.Import(newer) })

	newer.Release()
	h.waitIdle()

	mark := h.dispatch.ran.Load()
	older.Release()
	h.settle(mark)

	assert.Equal(t, "program New;", h.source.Value())
	assert.Equal(t, "program New;", h.stored(store.KeySource))
	assert.Equal(t, "new.pas", h.view().SourceName)
}

func TestClearSupersedesImport(t *testing.T) {
	h := newHarness(t, nil)
	handle := testutil.NewBlockingHandle("late.pas", "program Late;")

	h.do(func() { h.c.Import(handle) })
	h.do(h.c.Clear)

	mark := h.dispatch.ran.Load()
	handle.Release()
	h.settle(mark)

	assert.Empty(t, h.source.Value())
	assert.Equal(t, Idle, h.view().State)
}

func TestImportCancelsPendingSave(t *testing.T) {
	h := newHarness(t, nil)
	path := filepath.Join(t.TempDir(), "file.pas")
	testutil.CreateTestFile(t, path, []byte("program Imported;"))

	h.typeSource("program Typed;")
	h.do(func() { h.c.Import(importer.PathHandle(path)) })
	h.waitIdle()

	h.clock.Advance(5 * time.Second)

	assert.Equal(t, "program Imported;", h.stored(store.KeySource))
	assert.NotContains(t, h.store.Writes(), "sourcecode=program Typed;")
}

func TestDegradedStorageKeepsWorking(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	testutil.CreateTestFile(t, blocker, []byte("x"))
	st := store.Open(filepath.Join(blocker, "session.db"), nil)
	require.True(t, st.Degraded())
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop()
	loop.Start(ctx)

	client := testutil.NewMockTranspiler()
	client.Fn = func(string) (transpile.Result, error) {
		return transpile.Result{Text: "class A {}", Succeeded: true}, nil
	}
	source, dest := NewMemoryEditor(), NewMemoryEditor()

	var c *Controller
	loop.Call(func() {
		var err error
		c, err = New(Deps{Source: source, Dest: dest, Store: st, Client: client, Dispatcher: loop})
		require.NoError(t, err)
		source.SetValue("program A;")
		require.NoError(t, c.Transpile())
	})

	v, err := WaitIdle(ctx, c, loop)
	require.NoError(t, err)
	assert.True(t, v.DownloadEnabled)
	assert.Equal(t, "class A {}", dest.Value())
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)

	_, err = New(Deps{Source: NewMemoryEditor(), Dest: NewMemoryEditor(), Store: store.NewMemoryStore()})
	assert.Error(t, err)
}

func TestSubscribeAndCancel(t *testing.T) {
	h := newHarness(t, nil)

	var mu sync.Mutex
	var seen []State
	var cancel func()
	h.do(func() {
		cancel = h.c.Subscribe(func(v View) {
			mu.Lock()
			seen = append(seen, v.State)
			mu.Unlock()
		})
	})
	h.typeSource("x")
	h.do(cancel)
	h.typeSource("xy")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Idle, Editing}, seen)
}
