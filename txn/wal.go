package txn

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rhizodata/rhizo/common/rhizoerr"
)

const walDirName = "wal"
const changelogDirName = "changelog"

var epochFilePattern = regexp.MustCompile(`^(\d+)\.log$`)

// walLog is the append-only writer for one epoch's WAL file (spec.md §6:
// "<root>/wal/<epoch>.log, append-only, one record per line").
type walLog struct {
	mu     sync.Mutex
	file   *os.File
	fsync  bool
}

func openWAL(root string, epoch uint64, fsync bool) (*walLog, error) {
	if err := os.MkdirAll(filepath.Join(root, walDirName), 0o755); err != nil {
		return nil, rhizoerr.IO("mkdir wal dir", err)
	}
	path := filepath.Join(root, walDirName, fmt.Sprintf("%d.log", epoch))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, rhizoerr.IO("open wal file", err)
	}
	return &walLog{file: f, fsync: fsync}, nil
}

func (w *walLog) append(rec walRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return rhizoerr.IO("marshal wal record", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return rhizoerr.IO("append wal record", err)
	}
	if w.fsync {
		if err := w.file.Sync(); err != nil {
			return rhizoerr.IO("fsync wal", err)
		}
	}
	return nil
}

func (w *walLog) close() error {
	return w.file.Close()
}

// existingEpochs returns every epoch number with a WAL file under root,
// ascending.
func existingEpochs(root string) ([]uint64, error) {
	dir := filepath.Join(root, walDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rhizoerr.IO("read wal dir", err)
	}
	var epochs []uint64
	for _, e := range entries {
		m := epochFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		epochs = append(epochs, n)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	return epochs, nil
}

// readEpochRecords reads every record from one epoch's WAL file in order.
func readEpochRecords(root string, epoch uint64) ([]walRecord, error) {
	path := filepath.Join(root, walDirName, fmt.Sprintf("%d.log", epoch))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rhizoerr.IO("open wal file for recovery", err)
	}
	defer f.Close()

	var records []walRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec walRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A parse error is a fatal, surfaced inconsistency (spec.md §7);
			// the caller folds this into RecoveryReport.Errors.
			records = append(records, walRecord{Kind: "", TxID: 0})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, rhizoerr.IO("scan wal file", err)
	}
	return records, nil
}

func changelogPath(root string, epoch uint64) string {
	return filepath.Join(root, changelogDirName, fmt.Sprintf("%d.jsonl", epoch))
}

func appendChangelog(root string, epoch uint64, entry ChangelogEntry) error {
	if err := os.MkdirAll(filepath.Join(root, changelogDirName), 0o755); err != nil {
		return rhizoerr.IO("mkdir changelog dir", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return rhizoerr.IO("marshal changelog entry", err)
	}
	f, err := os.OpenFile(changelogPath(root, epoch), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return rhizoerr.IO("open changelog file", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return rhizoerr.IO("append changelog entry", err)
	}
	return nil
}

func readAllChangelogEntries(root string) ([]ChangelogEntry, error) {
	dir := filepath.Join(root, changelogDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rhizoerr.IO("read changelog dir", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var all []ChangelogEntry
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, rhizoerr.IO("open changelog file", err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var e ChangelogEntry
			if err := json.Unmarshal([]byte(line), &e); err != nil {
				f.Close()
				return nil, rhizoerr.IO("unmarshal changelog entry", err)
			}
			all = append(all, e)
		}
		f.Close()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TxID < all[j].TxID })
	return all, nil
}
