// Package branch implements the named branch manager of spec.md §4.5:
// Git-like zero-copy head pointers mapping table -> version.
package branch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/common/rhizoerr"
)

const (
	dirName       = "_branches"
	defaultFile   = "_default.txt"
	// DefaultBranch is the root branch, created automatically and
	// undeletable.
	DefaultBranch = "main"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*$`)

// Branch is spec.md §3's "Branch" entity.
type Branch struct {
	Name         string            `json:"name"`
	Head         map[string]uint64 `json:"head"`
	CreatedAt    int64             `json:"created_at"`
	ParentBranch *string           `json:"parent_branch,omitempty"`
	Description  *string           `json:"description,omitempty"`
}

// Manager persists branches as one JSON file each under <root>/_branches/.
type Manager struct {
	root   string
	logger logging.Logger
	mu     sync.Mutex

	now func() int64
}

type Option func(*Manager)

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = logging.Named(l, "branch") }
}

// WithClock overrides the time source (tests only).
func WithClock(now func() int64) Option {
	return func(m *Manager) { m.now = now }
}

// New opens (creating if necessary) a branch manager at root, ensuring
// "main" exists and is marked default.
func New(root string, opts ...Option) (*Manager, error) {
	m := &Manager{root: root, logger: logging.Nop(), now: func() int64 { return time.Now().Unix() }}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(filepath.Join(root, dirName), 0o755); err != nil {
		return nil, rhizoerr.IO("mkdir branches root", err)
	}
	if _, err := m.Get(DefaultBranch); err != nil {
		if rhizoerr.Is(err, rhizoerr.KindNotFound) {
			if err := m.create(DefaultBranch, nil, nil); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}
	if _, err := os.Stat(m.defaultPointerPath()); os.IsNotExist(err) {
		if err := writeAtomic(m.defaultPointerPath(), []byte(DefaultBranch)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func encodeName(name string) string {
	return strings.ReplaceAll(name, "/", "__")
}

func (m *Manager) branchPath(name string) string {
	return filepath.Join(m.root, dirName, encodeName(name)+".json")
}

func (m *Manager) defaultPointerPath() string {
	return filepath.Join(m.root, dirName, defaultFile)
}

func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, "_") || strings.Contains(name, "//") || !namePattern.MatchString(name) {
		return rhizoerr.InvalidBranchName(name)
	}
	return nil
}

// Create validates name, fails if it already exists, and deep-copies from's
// head map (a pointer-level copy, never chunk bytes).
func (m *Manager) Create(name string, from *string, description *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(name, from, description)
}

func (m *Manager) create(name string, from *string, description *string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := os.Stat(m.branchPath(name)); err == nil {
		return rhizoerr.BranchAlreadyExists(name)
	}

	head := map[string]uint64{}
	var parent *string
	if from != nil {
		source, err := m.get(*from)
		if err != nil {
			return err
		}
		for k, v := range source.Head {
			head[k] = v
		}
		fromCopy := *from
		parent = &fromCopy
	}

	b := Branch{
		Name:         name,
		Head:         head,
		CreatedAt:    m.now(),
		ParentBranch: parent,
		Description:  description,
	}
	return m.save(b)
}

func (m *Manager) save(b Branch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return rhizoerr.IO("marshal branch", err)
	}
	return writeAtomic(m.branchPath(b.Name), data)
}

// Get returns the named branch.
func (m *Manager) Get(name string) (Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(name)
}

func (m *Manager) get(name string) (Branch, error) {
	data, err := os.ReadFile(m.branchPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Branch{}, rhizoerr.BranchNotFound(name)
		}
		return Branch{}, rhizoerr.IO("read branch", err)
	}
	var b Branch
	if err := json.Unmarshal(data, &b); err != nil {
		return Branch{}, rhizoerr.IO("unmarshal branch", err)
	}
	return b, nil
}

// Delete removes a branch; the default branch may never be removed.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == DefaultBranch {
		return rhizoerr.CannotDeleteDefaultBranch(name)
	}
	if _, err := m.get(name); err != nil {
		return err
	}
	if err := os.Remove(m.branchPath(name)); err != nil {
		return rhizoerr.IO("remove branch", err)
	}
	return nil
}

// UpdateHead sets branch's head[table] = version directly. Monotonicity is
// NOT enforced here (spec.md §4.5) — only the transaction manager's Commit
// is expected to advance heads through this method; any other caller is
// responsible for its own invariants (SPEC_FULL.md §9).
func (m *Manager) UpdateHead(branch, table string, version uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.get(branch)
	if err != nil {
		return err
	}
	if b.Head == nil {
		b.Head = map[string]uint64{}
	}
	b.Head[table] = version
	return m.save(b)
}

// List returns every branch name.
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, err := os.ReadDir(filepath.Join(m.root, dirName))
	if err != nil {
		return nil, rhizoerr.IO("read branches dir", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !strings.HasSuffix(n, ".json") {
			continue
		}
		names = append(names, strings.ReplaceAll(strings.TrimSuffix(n, ".json"), "__", "/"))
	}
	sort.Strings(names)
	return names, nil
}

// TableVersionPair names a table that exists only on one side of a diff.
type TableVersionPair struct {
	Table   string
	Version uint64
}

// ModifiedTable names a table whose version differs between two branches.
type ModifiedTable struct {
	Table         string
	SourceVersion uint64
	TargetVersion uint64
}

// Diff is spec.md §3's "Branch Diff" entity.
type Diff struct {
	Source         string
	Target         string
	Unchanged      []string
	Modified       []ModifiedTable
	AddedInSource  []TableVersionPair
	AddedInTarget  []TableVersionPair
	HasConflicts   bool
}

// Diff computes the BranchDiff between source and target, sorted
// deterministically.
func (m *Manager) Diff(source, target string) (Diff, error) {
	src, err := m.Get(source)
	if err != nil {
		return Diff{}, err
	}
	tgt, err := m.Get(target)
	if err != nil {
		return Diff{}, err
	}

	d := Diff{Source: source, Target: target}
	for table, sv := range src.Head {
		tv, ok := tgt.Head[table]
		if !ok {
			d.AddedInSource = append(d.AddedInSource, TableVersionPair{Table: table, Version: sv})
			continue
		}
		if sv == tv {
			d.Unchanged = append(d.Unchanged, table)
		} else {
			d.Modified = append(d.Modified, ModifiedTable{Table: table, SourceVersion: sv, TargetVersion: tv})
		}
	}
	for table, tv := range tgt.Head {
		if _, ok := src.Head[table]; !ok {
			d.AddedInTarget = append(d.AddedInTarget, TableVersionPair{Table: table, Version: tv})
		}
	}

	sort.Strings(d.Unchanged)
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].Table < d.Modified[j].Table })
	sort.Slice(d.AddedInSource, func(i, j int) bool { return d.AddedInSource[i].Table < d.AddedInSource[j].Table })
	sort.Slice(d.AddedInTarget, func(i, j int) bool { return d.AddedInTarget[i].Table < d.AddedInTarget[j].Table })

	d.HasConflicts = len(d.Modified) > 0
	return d, nil
}

// CanFastForward reports whether target can be fast-forwarded to source
// (no tables modified on both sides).
func (m *Manager) CanFastForward(source, target string) (bool, error) {
	d, err := m.Diff(source, target)
	if err != nil {
		return false, err
	}
	return len(d.Modified) == 0, nil
}

// MergeFastForward applies every source head entry onto target, failing
// with MergeConflict if any table was independently modified on target.
func (m *Manager) MergeFastForward(source, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.get(source)
	if err != nil {
		return err
	}
	tgt, err := m.get(target)
	if err != nil {
		return err
	}

	var conflicting []string
	for table, sv := range src.Head {
		if tv, ok := tgt.Head[table]; ok && tv != sv {
			conflicting = append(conflicting, table)
		}
	}
	if len(conflicting) > 0 {
		sort.Strings(conflicting)
		return rhizoerr.MergeConflict(conflicting)
	}

	if tgt.Head == nil {
		tgt.Head = map[string]uint64{}
	}
	for table, sv := range src.Head {
		tgt.Head[table] = sv
	}
	return m.save(tgt)
}

func writeAtomic(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return rhizoerr.IO("write temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return rhizoerr.IO("rename into place", err)
	}
	return nil
}
