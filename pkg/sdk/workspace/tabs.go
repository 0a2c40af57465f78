package workspace

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Tab is one open editor buffer. Tabs opened from a repository remember the
// file path they came from; scratch tabs have no path.
type Tab struct {
	Content  string `json:"content"`
	Path     string `json:"path,omitempty"`
	Language string `json:"language,omitempty"`
}

// CommitTarget pins a repository tab to the repo and branch it should be
// committed back to.
type CommitTarget struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// Storage persists a tab set between sessions. Saving is explicit; edits
// stay in memory until Save is called.
type Storage interface {
	Load() (map[string]*Tab, error)
	Save(tabs map[string]*Tab) error
}

// MemoryStorage keeps tabs in process memory. Useful for tests and
// throwaway sessions.
type MemoryStorage struct {
	mu   sync.Mutex
	tabs map[string]*Tab
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tabs: map[string]*Tab{}}
}

func (s *MemoryStorage) Load() (map[string]*Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTabs(s.tabs), nil
}

func (s *MemoryStorage) Save(tabs map[string]*Tab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = copyTabs(tabs)
	return nil
}

// FileStorage persists tabs as a JSON file.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Load() (map[string]*Tab, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Tab{}, nil
		}
		return nil, err
	}

	tabs := map[string]*Tab{}
	if err := sonic.Unmarshal(raw, &tabs); err != nil {
		return nil, fmt.Errorf("corrupt tab store: %w", err)
	}

	return tabs, nil
}

func (s *FileStorage) Save(tabs map[string]*Tab) error {
	raw, err := sonic.Marshal(tabs)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, raw, 0o644)
}

// Snapshot is a point-in-time copy of every tab, kept in memory for undo.
type Snapshot struct {
	TakenAt time.Time
	Tabs    map[string]Tab
}

const maxSnapshots = 50

var (
	ErrTabExists   = fmt.Errorf("tab already exists")
	ErrTabNotFound = fmt.Errorf("tab not found")
)

// TabSet manages the open tabs of one editing session. Tab names are unique;
// all methods are safe for concurrent use.
type TabSet struct {
	mu      sync.Mutex
	storage Storage
	tabs    map[string]*Tab
	targets map[string]CommitTarget
	active  string
	history []Snapshot
}

// NewTabSet loads the persisted tabs from storage.
func NewTabSet(storage Storage) (*TabSet, error) {
	tabs, err := storage.Load()
	if err != nil {
		return nil, err
	}

	return &TabSet{
		storage: storage,
		tabs:    tabs,
		targets: map[string]CommitTarget{},
	}, nil
}

// Open creates an empty scratch tab. The name must be unused.
func (t *TabSet) Open(name string) (*Tab, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tabs[name]; ok {
		return nil, ErrTabExists
	}

	tab := &Tab{}
	t.tabs[name] = tab
	t.active = name
	return tab, nil
}

// OpenExternal creates a tab for a repository file, inferring the language
// from the file extension. A clashing name gets a numeric suffix.
func (t *TabSet) OpenExternal(name, filePath, content string, target CommitTarget) (string, *Tab) {
	t.mu.Lock()
	defer t.mu.Unlock()

	unique := name
	for i := 2; ; i++ {
		if _, ok := t.tabs[unique]; !ok {
			break
		}
		unique = fmt.Sprintf("%s (%d)", name, i)
	}

	tab := &Tab{
		Content:  content,
		Path:     filePath,
		Language: LanguageForPath(filePath),
	}
	t.tabs[unique] = tab
	t.targets[unique] = target
	t.active = unique
	return unique, tab
}

// Get returns a tab by name.
func (t *TabSet) Get(name string) (*Tab, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tabs[name]
	return tab, ok
}

// Names returns the tab names in sorted order.
func (t *TabSet) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.tabs))
	for name := range t.tabs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetContent replaces a tab's content.
func (t *TabSet) SetContent(name, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tab, ok := t.tabs[name]
	if !ok {
		return ErrTabNotFound
	}
	tab.Content = content
	return nil
}

// Rename moves a tab to a new unused name.
func (t *TabSet) Rename(oldName, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tab, ok := t.tabs[oldName]
	if !ok {
		return ErrTabNotFound
	}
	if _, ok := t.tabs[newName]; ok {
		return ErrTabExists
	}

	delete(t.tabs, oldName)
	t.tabs[newName] = tab
	if target, ok := t.targets[oldName]; ok {
		delete(t.targets, oldName)
		t.targets[newName] = target
	}
	if t.active == oldName {
		t.active = newName
	}
	return nil
}

// Close removes a tab and its commit target.
func (t *TabSet) Close(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tabs[name]; !ok {
		return ErrTabNotFound
	}
	delete(t.tabs, name)
	delete(t.targets, name)
	if t.active == name {
		t.active = ""
	}
	return nil
}

// Activate marks a tab as the focused one.
func (t *TabSet) Activate(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tabs[name]; !ok {
		return ErrTabNotFound
	}
	t.active = name
	return nil
}

// Active returns the focused tab name, or "" when none is focused.
func (t *TabSet) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Target returns the commit target for a repository tab.
func (t *TabSet) Target(name string) (CommitTarget, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	target, ok := t.targets[name]
	return target, ok
}

// TakeSnapshot records the current state of every tab. Oldest snapshots are
// dropped past the cap.
func (t *TabSet) TakeSnapshot() {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{TakenAt: time.Now(), Tabs: map[string]Tab{}}
	for name, tab := range t.tabs {
		snap.Tabs[name] = *tab
	}

	t.history = append(t.history, snap)
	if len(t.history) > maxSnapshots {
		t.history = t.history[len(t.history)-maxSnapshots:]
	}
}

// History returns the recorded snapshots, oldest first.
func (t *TabSet) History() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Snapshot(nil), t.history...)
}

// Restore replaces all tabs with the contents of a recorded snapshot.
func (t *TabSet) Restore(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.history) {
		return fmt.Errorf("no snapshot at index %d", index)
	}

	snap := t.history[index]
	t.tabs = map[string]*Tab{}
	for name, tab := range snap.Tabs {
		copied := tab
		t.tabs[name] = &copied
	}
	if _, ok := t.tabs[t.active]; !ok {
		t.active = ""
	}
	return nil
}

// Save persists the current tabs through storage.
func (t *TabSet) Save() error {
	t.mu.Lock()
	tabs := copyTabs(t.tabs)
	t.mu.Unlock()

	return t.storage.Save(tabs)
}

// LanguageForPath maps a file extension to an editor language hint.
func LanguageForPath(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".js", ".mjs":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".html", ".htm":
		return "html"
	case ".css":
		return "css"
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	default:
		return "plaintext"
	}
}

func copyTabs(tabs map[string]*Tab) map[string]*Tab {
	out := make(map[string]*Tab, len(tabs))
	for name, tab := range tabs {
		copied := *tab
		out[name] = &copied
	}
	return out
}
