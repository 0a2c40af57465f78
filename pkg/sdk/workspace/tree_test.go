package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evo-edit/evo/pkg/githost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost serves canned listings and can hold a ListDir call open until
// released, to exercise in-flight behavior.
type fakeHost struct {
	mu       sync.Mutex
	listings map[string][]githost.Entry
	files    map[string]*githost.File
	errs     map[string]error
	calls    map[string]int

	gate chan struct{} // when set, ListDir blocks until the gate closes
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		listings: map[string][]githost.Entry{},
		files:    map[string]*githost.File{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (h *fakeHost) ListDir(ctx context.Context, owner, repo, path, ref string) ([]githost.Entry, error) {
	h.mu.Lock()
	h.calls[path]++
	gate := h.gate
	err := h.errs[path]
	entries := h.listings[path]
	h.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (h *fakeHost) FetchFile(ctx context.Context, owner, repo, path, ref string) (*githost.File, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	file, ok := h.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return file, nil
}

func (h *fakeHost) callCount(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[path]
}

func TestExpandSortsDirsFirst(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{
		{Name: "readme.md", Path: "readme.md", Type: "file"},
		{Name: "src", Path: "src", Type: "dir"},
		{Name: "assets", Path: "assets", Type: "dir"},
		{Name: "app.js", Path: "app.js", Type: "file"},
	}

	browser := NewTreeBrowser(host, "alice", "editor", "main")
	children, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, children, 4)

	names := []string{children[0].Name, children[1].Name, children[2].Name, children[3].Name}
	assert.Equal(t, []string{"assets", "src", "app.js", "readme.md"}, names)

	root, ok := browser.Node("")
	require.True(t, ok)
	assert.Equal(t, Expanded, root.State())
}

func TestExpandSortsOtherKindsWithFiles(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{
		{Name: "vendor", Path: "vendor", Type: "submodule"},
		{Name: "b.txt", Path: "b.txt", Type: "file"},
		{Name: "link", Path: "link", Type: "symlink"},
		{Name: "src", Path: "src", Type: "dir"},
	}

	browser := NewTreeBrowser(host, "alice", "editor", "main")
	children, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, children, 4)

	names := []string{children[0].Name, children[1].Name, children[2].Name, children[3].Name}
	assert.Equal(t, []string{"src", "b.txt", "link", "vendor"}, names)

	root, ok := browser.Node("")
	require.True(t, ok)
	assert.Equal(t, Expanded, root.State())
}

func TestExpandAlreadyExpandedIsNoop(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{{Name: "src", Path: "src", Type: "dir"}}

	browser := NewTreeBrowser(host, "alice", "editor", "main")

	_, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)
	_, err = browser.Expand(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, host.callCount(""), "second expand must not refetch")
}

func TestExpandSingleFlight(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{{Name: "src", Path: "src", Type: "dir"}}
	host.gate = make(chan struct{})

	browser := NewTreeBrowser(host, "alice", "editor", "main")

	firstDone := make(chan error, 1)
	go func() {
		_, err := browser.Expand(context.Background(), "")
		firstDone <- err
	}()

	// wait for the first expand to mark the node
	require.Eventually(t, func() bool {
		n, _ := browser.Node("")
		return n.State() == Expanding
	}, time.Second, time.Millisecond)

	_, err := browser.Expand(context.Background(), "")
	assert.ErrorIs(t, err, ErrExpandInProgress)

	close(host.gate)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, host.callCount(""))
}

func TestCollapseDiscardsInFlightExpand(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{{Name: "src", Path: "src", Type: "dir"}}
	host.gate = make(chan struct{})

	browser := NewTreeBrowser(host, "alice", "editor", "main")

	firstDone := make(chan error, 1)
	go func() {
		_, err := browser.Expand(context.Background(), "")
		firstDone <- err
	}()

	require.Eventually(t, func() bool {
		n, _ := browser.Node("")
		return n.State() == Expanding
	}, time.Second, time.Millisecond)

	require.NoError(t, browser.Collapse(""))

	err := <-firstDone
	require.Error(t, err)

	n, _ := browser.Node("")
	assert.Equal(t, Collapsed, n.State())
	children, cerr := browser.Children("")
	require.NoError(t, cerr)
	assert.Empty(t, children, "discarded expand must not install children")
}

func TestCollapseThenExpandRefetches(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{{Name: "src", Path: "src", Type: "dir"}}

	browser := NewTreeBrowser(host, "alice", "editor", "main")

	_, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, browser.Collapse(""))

	_, err = browser.Expand(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, host.callCount(""))
}

func TestExpandFailureLeavesNodeCollapsed(t *testing.T) {
	host := newFakeHost()
	host.errs[""] = errors.New("upstream down")

	browser := NewTreeBrowser(host, "alice", "editor", "main")

	_, err := browser.Expand(context.Background(), "")
	require.Error(t, err)

	n, _ := browser.Node("")
	assert.Equal(t, Collapsed, n.State())
	assert.Error(t, n.Err())

	// the failure clears and the node retries on the next expand
	host.mu.Lock()
	delete(host.errs, "")
	host.listings[""] = []githost.Entry{{Name: "src", Path: "src", Type: "dir"}}
	host.mu.Unlock()

	children, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, children, 1)
	assert.NoError(t, n.Err())
}

func TestSiblingsExpandIndependently(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{
		{Name: "a", Path: "a", Type: "dir"},
		{Name: "b", Path: "b", Type: "dir"},
	}
	host.listings["a"] = []githost.Entry{{Name: "x.txt", Path: "a/x.txt", Type: "file"}}
	host.listings["b"] = []githost.Entry{{Name: "y.txt", Path: "b/y.txt", Type: "file"}}

	browser := NewTreeBrowser(host, "alice", "editor", "main")

	_, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)
	_, err = browser.Expand(context.Background(), "a")
	require.NoError(t, err)

	a, _ := browser.Node("a")
	b, _ := browser.Node("b")
	assert.Equal(t, Expanded, a.State())
	assert.Equal(t, Collapsed, b.State())
}

func TestExpandNonDirectory(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{{Name: "a.txt", Path: "a.txt", Type: "file"}}

	browser := NewTreeBrowser(host, "alice", "editor", "main")
	_, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)

	_, err = browser.Expand(context.Background(), "a.txt")
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = browser.Expand(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestOpenFileReturnsCommitTarget(t *testing.T) {
	host := newFakeHost()
	host.listings[""] = []githost.Entry{{Name: "app.js", Path: "app.js", Type: "file"}}
	host.files["app.js"] = &githost.File{Path: "app.js", Content: "code", SHA: "abc"}

	browser := NewTreeBrowser(host, "alice", "editor", "dev")
	_, err := browser.Expand(context.Background(), "")
	require.NoError(t, err)

	file, target, err := browser.OpenFile(context.Background(), "app.js")
	require.NoError(t, err)
	assert.Equal(t, "code", file.Content)
	assert.Equal(t, CommitTarget{Owner: "alice", Repo: "editor", Branch: "dev"}, target)
}
