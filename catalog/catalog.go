// Package catalog implements the per-table monotonic version log and
// "latest" pointer of spec.md §4.4.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/common/rhizoerr"
)

const dirName = "catalog"
const latestFile = "_latest.txt"

// TableVersion is spec.md §3's "Table Version" entity.
type TableVersion struct {
	TableName     string            `json:"table_name"`
	Version       uint64            `json:"version"`
	ChunkHashes   []string          `json:"chunk_hashes"`
	SchemaHash    *string           `json:"schema_hash,omitempty"`
	CreatedAt     int64             `json:"created_at"`
	ParentVersion *uint64           `json:"parent_version,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Catalog persists TableVersions as one JSON file per version plus a
// "latest" pointer file, per table, under <root>/catalog/<table>/.
type Catalog struct {
	root   string
	logger logging.Logger
	mu     sync.Mutex
}

// Option configures a Catalog at construction time.
type Option func(*Catalog)

func WithLogger(l logging.Logger) Option {
	return func(c *Catalog) { c.logger = logging.Named(l, "catalog") }
}

// New opens (creating the root directory if necessary) a catalog at root.
func New(root string, opts ...Option) (*Catalog, error) {
	c := &Catalog{root: root, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if err := os.MkdirAll(filepath.Join(root, dirName), 0o755); err != nil {
		return nil, rhizoerr.IO("mkdir catalog root", err)
	}
	return c, nil
}

func (c *Catalog) tableDir(table string) string {
	return filepath.Join(c.root, dirName, table)
}

func (c *Catalog) versionPath(table string, version uint64) string {
	return filepath.Join(c.tableDir(table), fmt.Sprintf("%d.json", version))
}

func (c *Catalog) latestPath(table string) string {
	return filepath.Join(c.tableDir(table), latestFile)
}

// Commit appends a new TableVersion, requiring version == current_latest+1.
func (c *Catalog) Commit(tv TableVersion) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, _, err := c.currentLatest(tv.TableName)
	if err != nil {
		return err
	}
	if tv.Version != current+1 {
		return rhizoerr.InvalidVersion(tv.TableName, current+1, tv.Version)
	}

	if err := os.MkdirAll(c.tableDir(tv.TableName), 0o755); err != nil {
		return rhizoerr.IO("mkdir table dir", err)
	}

	data, err := json.Marshal(tv)
	if err != nil {
		return rhizoerr.IO("marshal table version", err)
	}
	if err := writeAtomic(c.versionPath(tv.TableName, tv.Version), data); err != nil {
		return err
	}
	// The latest pointer is updated last, after the version file is durable.
	if err := writeAtomic(c.latestPath(tv.TableName), []byte(strconv.FormatUint(tv.Version, 10))); err != nil {
		return err
	}
	return nil
}

// currentLatest returns the current latest version for table (0 if the
// table doesn't exist yet) and whether the table's latest pointer exists.
func (c *Catalog) currentLatest(table string) (uint64, bool, error) {
	raw, err := os.ReadFile(c.latestPath(table))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, rhizoerr.IO("read latest pointer", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, false, rhizoerr.LatestPointerCorrupted(table)
	}
	if _, statErr := os.Stat(c.versionPath(table, v)); statErr != nil {
		return 0, false, rhizoerr.LatestPointerCorrupted(table)
	}
	return v, true, nil
}

// GetVersion returns the TableVersion for table at the given version, or
// the latest if version is nil.
func (c *Catalog) GetVersion(table string, version *uint64) (TableVersion, error) {
	var v uint64
	if version == nil {
		latest, ok, err := c.currentLatest(table)
		if err != nil {
			return TableVersion{}, err
		}
		if !ok {
			return TableVersion{}, rhizoerr.TableNotFound(table)
		}
		v = latest
	} else {
		v = *version
	}

	raw, err := os.ReadFile(c.versionPath(table, v))
	if err != nil {
		if os.IsNotExist(err) {
			return TableVersion{}, rhizoerr.VersionNotFound(table, v)
		}
		return TableVersion{}, rhizoerr.IO("read table version", err)
	}
	var tv TableVersion
	if err := json.Unmarshal(raw, &tv); err != nil {
		return TableVersion{}, rhizoerr.IO("unmarshal table version", err)
	}
	return tv, nil
}

// ListVersions returns every committed version number for table, ascending.
func (c *Catalog) ListVersions(table string) ([]uint64, error) {
	entries, err := os.ReadDir(c.tableDir(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rhizoerr.TableNotFound(table)
		}
		return nil, rhizoerr.IO("read table dir", err)
	}
	var versions []uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		n := strings.TrimSuffix(name, ".json")
		v, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// ListTables returns every table with at least one committed version.
func (c *Catalog) ListTables() ([]string, error) {
	root := filepath.Join(c.root, dirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rhizoerr.IO("read catalog root", err)
	}
	var tables []string
	for _, e := range entries {
		if e.IsDir() {
			tables = append(tables, e.Name())
		}
	}
	sort.Strings(tables)
	return tables, nil
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
