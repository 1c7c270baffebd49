package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	ch    chan string
}

func newFakeRunner() *fakeRunner { return &fakeRunner{ch: make(chan string, 64)} }

func (f *fakeRunner) RunAsync(_ context.Context, entries []string, onDone func(*taskgraph.Report)) {
	f.mu.Lock()
	f.calls = append(f.calls, entries)
	f.mu.Unlock()
	if onDone != nil {
		onDone(&taskgraph.Report{Targets: entries})
	}
	f.ch <- entries[0]
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitTarget(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no invocation triggered")
		return ""
	}
}

func TestDispatcher_FanInAndExactTargets(t *testing.T) {
	root := t.TempDir()
	r := newFakeRunner()
	d := New(r, WithDebounce(5*time.Millisecond))
	require.NoError(t, d.Watch("html", filepath.Join(root, "html", "**", "*.twig"), filepath.Join(root, "html", "**", "*.md")))
	require.NoError(t, d.Watch("js", filepath.Join(root, "js", "**", "*.js"), "!"+filepath.Join(root, "out", "**", "*.js")))
	require.NoError(t, d.Watch("js:vendor", filepath.Join(root, "js", "vendor", "**", "*.js")))

	assert.Equal(t, []string{"html"}, d.Targets(filepath.Join(root, "html", "a.md")))
	assert.Equal(t, []string{"html"}, d.Targets(filepath.Join(root, "html", "p", "a.twig")))
	assert.Equal(t, []string{"js", "js:vendor"}, d.Targets(filepath.Join(root, "js", "vendor", "x.js")))
	assert.Empty(t, d.Targets(filepath.Join(root, "out", "x.js")))
	assert.Empty(t, d.Targets(filepath.Join(root, "html", "a.txt")))

	got := d.Dispatch(t.Context(), filepath.Join(root, "html", "index.twig"))
	assert.Equal(t, []string{"html"}, got)
	assert.Equal(t, "html", waitTarget(t, r.ch))
}

func TestDispatcher_DebouncesPerTarget(t *testing.T) {
	root := t.TempDir()
	r := newFakeRunner()
	var reports []*taskgraph.Report
	var mu sync.Mutex
	d := New(r, WithDebounce(50*time.Millisecond), WithOnDone(func(rep *taskgraph.Report) {
		mu.Lock()
		reports = append(reports, rep)
		mu.Unlock()
	}))
	require.NoError(t, d.Watch("a", filepath.Join(root, "a", "*")))
	require.NoError(t, d.Watch("b", filepath.Join(root, "b", "*")))

	for range 5 {
		d.Dispatch(t.Context(), filepath.Join(root, "a", "x"))
	}
	d.Dispatch(t.Context(), filepath.Join(root, "b", "x"))

	fired := []string{waitTarget(t, r.ch), waitTarget(t, r.ch)}
	assert.ElementsMatch(t, []string{"a", "b"}, fired)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, r.count())
	mu.Lock()
	assert.Len(t, reports, 2)
	mu.Unlock()
}

func TestDispatcher_CanceledContextDoesNotFire(t *testing.T) {
	root := t.TempDir()
	r := newFakeRunner()
	d := New(r, WithDebounce(5*time.Millisecond))
	require.NoError(t, d.Watch("a", filepath.Join(root, "*")))
	ctx, cancel := context.WithCancel(t.Context())
	d.Dispatch(ctx, filepath.Join(root, "x"))
	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, r.count())
}

func TestDispatcher_InvalidPattern(t *testing.T) {
	d := New(newFakeRunner())
	err := d.Watch("x", "!/only/negated/*")
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryWatch, ferrors.GetCategory(err))
}

func TestDispatcher_Roots(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), nil, 0o600))

	d := New(newFakeRunner())
	require.NoError(t, d.Watch("css", filepath.Join(root, "css", "**", "*.styl")))
	require.NoError(t, d.Watch("css:vendor", filepath.Join(root, "css", "vendor", "*.css")))
	require.NoError(t, d.Watch("express", filepath.Join(root, "app.js")))
	require.NoError(t, d.Watch("svg", filepath.Join(root, "missing", "*.svg")))

	assert.Equal(t, []string{root, filepath.Join(root, "css")}, d.Roots())
	assert.Equal(t, []watchRoot{
		{dir: root},
		{dir: filepath.Join(root, "css"), recursive: true},
	}, d.watchRoots())
}

func TestSkipDir(t *testing.T) {
	assert.True(t, skipDir(".git"))
	assert.True(t, skipDir("node_modules"))
	assert.False(t, skipDir("vendor"))
}

func TestDispatcher_RunReactsToFileChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o750))
	r := newFakeRunner()
	d := New(r, WithDebounce(10*time.Millisecond))
	require.NoError(t, d.Watch("css:stylus", filepath.Join(root, "css", "**", "*.styl")))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "main.styl"), []byte("a{}"), 0o600))
	assert.Equal(t, "css:stylus", waitTarget(t, r.ch))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestShouldIgnoreEvent(t *testing.T) {
	for _, p := range []string{"/a/.hidden", "/a/file~", "/a/x.swp", "/a/#x#", "/a/Thumbs.db"} {
		assert.True(t, shouldIgnoreEvent(p), p)
	}
	assert.False(t, shouldIgnoreEvent("/a/main.styl"))
}
