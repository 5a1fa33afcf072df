package txn

import (
	"encoding/json"
	"fmt"

	"github.com/hpcloud/tail"

	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// ChangelogQuery filters QueryChangelog results (spec.md §4.6 "changelog
// query").
type ChangelogQuery struct {
	SinceTxID     *uint64
	SinceTimestamp *int64
	Tables        []string
	Branch        string
	Limit         int
}

func (q ChangelogQuery) matches(e ChangelogEntry) bool {
	if q.SinceTxID != nil && e.TxID <= *q.SinceTxID {
		return false
	}
	if q.SinceTimestamp != nil && e.CommittedAt <= *q.SinceTimestamp {
		return false
	}
	if q.Branch != "" && e.Branch != q.Branch {
		return false
	}
	if len(q.Tables) > 0 {
		found := false
		wanted := map[string]bool{}
		for _, t := range q.Tables {
			wanted[t] = true
		}
		for _, c := range e.Changes {
			if wanted[c.Table] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// QueryChangelog returns matching entries ordered by ascending tx_id.
func (m *Manager) QueryChangelog(q ChangelogQuery) ([]ChangelogEntry, error) {
	all, err := readAllChangelogEntries(m.root)
	if err != nil {
		return nil, err
	}
	var out []ChangelogEntry
	for _, e := range all {
		if q.matches(e) {
			out = append(out, e)
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// LatestTxID returns the highest committed tx_id, or nil if none.
func (m *Manager) LatestTxID() (*uint64, error) {
	all, err := readAllChangelogEntries(m.root)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	max := all[0].TxID
	for _, e := range all {
		if e.TxID > max {
			max = e.TxID
		}
	}
	return &max, nil
}

// ChangelogStreamer tails the active epoch's changelog file, delivering
// each newly-appended ChangelogEntry as it is written. This is an additive
// convenience for live consumers (dashboards, downstream sync jobs) layered
// over the same append-only file QueryChangelog reads from cold.
type ChangelogStreamer struct {
	logger logging.Logger
	t      *tail.Tail
	out    chan ChangelogEntry
	errs   chan error
}

// NewChangelogStreamer starts tailing m's current epoch changelog file from
// its end (fromBeginning=false) or from the start (true).
func NewChangelogStreamer(m *Manager, fromBeginning bool, logger logging.Logger) (*ChangelogStreamer, error) {
	path := changelogPath(m.root, m.epoch)
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Whence: seekWhence(fromBeginning)},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, rhizoerr.IO(fmt.Sprintf("tail changelog %s", path), err)
	}

	s := &ChangelogStreamer{
		logger: logging.Named(logger, "changelog-streamer"),
		t:      t,
		out:    make(chan ChangelogEntry, 64),
		errs:   make(chan error, 1),
	}
	go s.pump()
	return s, nil
}

func seekWhence(fromBeginning bool) int {
	if fromBeginning {
		return 0 // io.SeekStart
	}
	return 2 // io.SeekEnd
}

func (s *ChangelogStreamer) pump() {
	defer close(s.out)
	for line := range s.t.Lines {
		if line.Err != nil {
			select {
			case s.errs <- line.Err:
			default:
			}
			continue
		}
		var entry ChangelogEntry
		if err := json.Unmarshal([]byte(line.Text), &entry); err != nil {
			select {
			case s.errs <- rhizoerr.IO("unmarshal streamed changelog entry", err):
			default:
			}
			continue
		}
		s.out <- entry
	}
}

// Entries is the channel of newly-observed ChangelogEntry values.
func (s *ChangelogStreamer) Entries() <-chan ChangelogEntry { return s.out }

// Errors surfaces tail/parse errors encountered while streaming.
func (s *ChangelogStreamer) Errors() <-chan error { return s.errs }

// Stop releases the underlying tail's file handle.
func (s *ChangelogStreamer) Stop() error {
	return s.t.Stop()
}
