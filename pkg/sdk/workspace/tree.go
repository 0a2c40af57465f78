package workspace

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/evo-edit/evo/pkg/githost"
)

// Host is the slice of the backend the tree browser needs: directory
// listings and file fetches.
type Host interface {
	ListDir(ctx context.Context, owner, repo, path, ref string) ([]githost.Entry, error)
	FetchFile(ctx context.Context, owner, repo, path, ref string) (*githost.File, error)
}

// NodeState tracks where a directory node is in its load cycle.
type NodeState int

const (
	Collapsed NodeState = iota
	Expanding
	Expanded
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrNotADirectory    = errors.New("node is not a directory")
	ErrExpandInProgress = errors.New("expand already in progress")
	ErrExpandSuperseded = errors.New("expand superseded by collapse")
)

// Node is one entry in the lazily loaded repository tree. Directory children
// are only fetched when the node is expanded.
type Node struct {
	Name string
	Path string
	Type string
	SHA  string

	state    NodeState
	children []*Node
	err      error
	gen      uint64
	cancel   context.CancelFunc
}

func (n *Node) State() NodeState {
	return n.state
}

// Err returns the failure from the last expand attempt, if any.
func (n *Node) Err() error {
	return n.err
}

// TreeBrowser drives lazy expansion of one repository's file tree. Each
// directory loads independently; collapsing cancels an in-flight load and
// discards its result.
type TreeBrowser struct {
	mu    sync.Mutex
	host  Host
	owner string
	repo  string
	ref   string
	root  *Node
	nodes map[string]*Node
}

func NewTreeBrowser(host Host, owner, repo, ref string) *TreeBrowser {
	root := &Node{Name: "/", Path: "", Type: "dir"}
	return &TreeBrowser{
		host:  host,
		owner: owner,
		repo:  repo,
		ref:   ref,
		root:  root,
		nodes: map[string]*Node{"": root},
	}
}

// Node looks up a tree node by repository path. The root is path "".
func (b *TreeBrowser) Node(path string) (*Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[path]
	return n, ok
}

// Children returns the loaded children of an expanded directory.
func (b *TreeBrowser) Children(path string) ([]*Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[path]
	if !ok {
		return nil, ErrNodeNotFound
	}
	if n.state != Expanded {
		return nil, nil
	}
	return append([]*Node(nil), n.children...), nil
}

// Expand loads a directory's children. While a load is in flight the node
// reports Expanding and further expands are rejected; expanding an already
// expanded node is a no-op. A collapse during the load wins: the fetched
// result is discarded.
func (b *TreeBrowser) Expand(ctx context.Context, path string) ([]*Node, error) {
	b.mu.Lock()
	n, ok := b.nodes[path]
	if !ok {
		b.mu.Unlock()
		return nil, ErrNodeNotFound
	}
	if n.Type != "dir" {
		b.mu.Unlock()
		return nil, ErrNotADirectory
	}

	switch n.state {
	case Expanded:
		children := append([]*Node(nil), n.children...)
		b.mu.Unlock()
		return children, nil
	case Expanding:
		b.mu.Unlock()
		return nil, ErrExpandInProgress
	}

	n.state = Expanding
	n.err = nil
	n.gen++
	gen := n.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	b.mu.Unlock()

	entries, err := b.host.ListDir(fetchCtx, b.owner, b.repo, path, b.ref)
	cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	// a collapse bumped the generation while we were fetching
	if n.gen != gen {
		return nil, ErrExpandSuperseded
	}
	n.cancel = nil

	if err != nil {
		n.state = Collapsed
		n.err = err
		return nil, err
	}

	sortDirsFirst(entries)

	n.children = n.children[:0]
	for _, entry := range entries {
		child := &Node{
			Name: entry.Name,
			Path: entry.Path,
			Type: entry.Type,
			SHA:  entry.SHA,
		}
		n.children = append(n.children, child)
		b.nodes[entry.Path] = child
	}
	n.state = Expanded

	return append([]*Node(nil), n.children...), nil
}

// Collapse folds a directory back up. Loaded children are discarded, so the
// next expand fetches a fresh listing. An in-flight expand is cancelled.
func (b *TreeBrowser) Collapse(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[path]
	if !ok {
		return ErrNodeNotFound
	}
	if n.Type != "dir" {
		return ErrNotADirectory
	}

	n.gen++
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}

	for _, child := range n.children {
		b.forget(child)
	}
	n.children = nil
	n.state = Collapsed
	return nil
}

func (b *TreeBrowser) forget(n *Node) {
	for _, child := range n.children {
		b.forget(child)
	}
	delete(b.nodes, n.Path)
}

// OpenFile fetches a file node's content and hands back the tab material:
// the decoded file plus the commit target it belongs to.
func (b *TreeBrowser) OpenFile(ctx context.Context, path string) (*githost.File, CommitTarget, error) {
	b.mu.Lock()
	n, ok := b.nodes[path]
	if !ok {
		b.mu.Unlock()
		return nil, CommitTarget{}, ErrNodeNotFound
	}
	if n.Type == "dir" {
		b.mu.Unlock()
		return nil, CommitTarget{}, errors.New("node is a directory")
	}
	b.mu.Unlock()

	file, err := b.host.FetchFile(ctx, b.owner, b.repo, path, b.ref)
	if err != nil {
		return nil, CommitTarget{}, err
	}

	branch := b.ref
	if branch == "" {
		branch = "main"
	}
	return file, CommitTarget{Owner: b.owner, Repo: b.repo, Branch: branch}, nil
}

// sortDirsFirst orders directories ahead of everything else, each group by
// name. Non-directory kinds (files, symlinks, submodules) sort together.
func sortDirsFirst(entries []githost.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		iDir := entries[i].Type == "dir"
		jDir := entries[j].Type == "dir"
		if iDir != jDir {
			return iDir
		}
		return entries[i].Name < entries[j].Name
	})
}
