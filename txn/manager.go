package txn

import (
	"sort"
	"sync"
	"time"

	"github.com/rhizodata/rhizo/branch"
	"github.com/rhizodata/rhizo/catalog"
	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// Manager is the transaction manager of spec.md §4.6: it owns the WAL and
// coordinates the catalog and branch manager during commit. Multiple
// producers may call Begin/AddWrite/Commit concurrently; a given tx_id is
// used by a single caller at a time.
type Manager struct {
	root     string
	logger   logging.Logger
	catalog  *catalog.Catalog
	branches *branch.Manager

	mu               sync.Mutex
	epoch            uint64
	wal              *walLog
	nextTxID         uint64
	active           map[uint64]*Record
	committingTables map[string]uint64

	now func() int64
}

type Option func(*Manager)

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = logging.Named(l, "txn") }
}

func WithClock(now func() int64) Option {
	return func(m *Manager) { m.now = now }
}

// New opens a Manager over root, starting a fresh WAL epoch. fsync controls
// whether WAL appends are synced before the call returns (spec.md §6: "each
// record... written with a durable sync before the next step depends on it").
func New(root string, cat *catalog.Catalog, branches *branch.Manager, fsync bool, opts ...Option) (*Manager, error) {
	epochs, err := existingEpochs(root)
	if err != nil {
		return nil, err
	}
	var nextTxID uint64 = 1
	for _, e := range epochs {
		records, err := readEpochRecords(root, e)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.TxID >= nextTxID {
				nextTxID = r.TxID + 1
			}
		}
	}

	epoch := uint64(len(epochs))
	wal, err := openWAL(root, epoch, fsync)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		root:             root,
		logger:           logging.Nop(),
		catalog:          cat,
		branches:         branches,
		epoch:            epoch,
		wal:              wal,
		nextTxID:         nextTxID,
		active:           map[uint64]*Record{},
		committingTables: map[string]uint64{},
		now:              func() int64 { return time.Now().UnixMicro() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Close() error {
	return m.wal.close()
}

// Begin allocates the next tx_id, snapshots the branch's current head, and
// durably appends a Begin WAL record.
func (m *Manager) Begin(branchName string) (Record, error) {
	b, err := m.branches.Get(branchName)
	if err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	txID := m.nextTxID
	m.nextTxID++
	snapshot := make(map[string]uint64, len(b.Head))
	for k, v := range b.Head {
		snapshot[k] = v
	}
	rec := &Record{
		TxID:         txID,
		EpochID:      m.epoch,
		Status:       Pending,
		Branch:       branchName,
		StartedAt:    m.now(),
		ReadSnapshot: snapshot,
		Writes:       map[string]TableWrite{},
	}
	m.active[txID] = rec
	m.mu.Unlock()

	if err := m.wal.append(walRecord{
		Kind:         walBegin,
		TxID:         txID,
		EpochID:      m.epoch,
		Branch:       branchName,
		StartedAt:    rec.StartedAt,
		ReadSnapshot: snapshot,
	}); err != nil {
		return Record{}, err
	}
	return *rec, nil
}

func (m *Manager) mustPending(txID uint64) (*Record, error) {
	rec, ok := m.active[txID]
	if !ok {
		return nil, rhizoerr.TransactionNotFound(txID)
	}
	switch rec.Status {
	case Committed:
		return nil, rhizoerr.AlreadyCommitted(txID)
	case Aborted:
		return nil, rhizoerr.AlreadyAborted(txID)
	}
	return rec, nil
}

// AddWrite records (overwriting any prior write to the same table in this
// transaction) a pending table write.
func (m *Manager) AddWrite(txID uint64, table string, newVersion uint64, chunkHashes []string, schemaHash *string) error {
	m.mu.Lock()
	rec, err := m.mustPending(txID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	rec.Writes[table] = TableWrite{TableName: table, NewVersion: newVersion, ChunkHashes: chunkHashes, SchemaHash: schemaHash}
	m.mu.Unlock()

	return m.wal.append(walRecord{
		Kind:        walWrite,
		TxID:        txID,
		EpochID:     m.epoch,
		Table:       table,
		NewVersion:  newVersion,
		ChunkHashes: chunkHashes,
	})
}

// RecordRead overrides the read snapshot for table, fixing which version
// commit-time conflict detection checks against.
func (m *Manager) RecordRead(txID uint64, table string, version uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.mustPending(txID)
	if err != nil {
		return err
	}
	rec.ReadSnapshot[table] = version
	return nil
}

// Commit validates snapshot/write-write conflicts under the manager lock,
// then durably advances the catalog, branch head, WAL, and changelog.
func (m *Manager) Commit(txID uint64) (Record, error) {
	m.mu.Lock()
	rec, err := m.mustPending(txID)
	if err != nil {
		m.mu.Unlock()
		return Record{}, err
	}

	current, err := m.branches.Get(rec.Branch)
	if err != nil {
		m.mu.Unlock()
		return Record{}, err
	}
	for table, readVersion := range rec.ReadSnapshot {
		if current.Head[table] != readVersion {
			m.mu.Unlock()
			m.failCommit(rec, "snapshot conflict")
			return Record{}, rhizoerr.SnapshotConflict(table, readVersion, current.Head[table])
		}
	}

	var conflicting []string
	for table := range rec.Writes {
		if owner, busy := m.committingTables[table]; busy && owner != txID {
			conflicting = append(conflicting, table)
		}
	}
	if len(conflicting) > 0 {
		m.mu.Unlock()
		sort.Strings(conflicting)
		m.failCommit(rec, "write conflict")
		return Record{}, rhizoerr.WriteConflict(conflicting)
	}
	for table := range rec.Writes {
		m.committingTables[table] = txID
	}
	m.mu.Unlock()

	tables := make([]string, 0, len(rec.Writes))
	for table := range rec.Writes {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	changes := make([]ChangeItem, 0, len(tables))
	for _, table := range tables {
		write := rec.Writes[table]
		var parent *uint64
		if v, ok := rec.ReadSnapshot[table]; ok {
			parent = &v
		}
		oldVersion := parent

		if err := m.catalog.Commit(catalog.TableVersion{
			TableName:     table,
			Version:       write.NewVersion,
			ChunkHashes:   write.ChunkHashes,
			SchemaHash:    write.SchemaHash,
			CreatedAt:     m.now(),
			ParentVersion: parent,
		}); err != nil {
			m.releaseCommitting(tables)
			m.failCommit(rec, err.Error())
			return Record{}, err
		}
		if err := m.branches.UpdateHead(rec.Branch, table, write.NewVersion); err != nil {
			m.releaseCommitting(tables)
			m.failCommit(rec, err.Error())
			return Record{}, err
		}
		changes = append(changes, ChangeItem{Table: table, OldVersion: oldVersion, NewVersion: write.NewVersion, ChunkHashes: write.ChunkHashes})
	}

	committedAt := m.now()
	if err := m.wal.append(walRecord{
		Kind:        walCommit,
		TxID:        txID,
		EpochID:     m.epoch,
		CommittedAt: committedAt,
		Changes:     changes,
	}); err != nil {
		m.releaseCommitting(tables)
		return Record{}, err
	}
	if err := appendChangelog(m.root, m.epoch, ChangelogEntry{
		TxID:        txID,
		EpochID:     m.epoch,
		CommittedAt: committedAt,
		Branch:      rec.Branch,
		Changes:     changes,
	}); err != nil {
		m.releaseCommitting(tables)
		return Record{}, err
	}

	m.mu.Lock()
	m.releaseCommittingLocked(tables)
	rec.Status = Committed
	rec.CommittedAt = &committedAt
	m.mu.Unlock()

	return *rec, nil
}

func (m *Manager) releaseCommitting(tables []string) {
	m.mu.Lock()
	m.releaseCommittingLocked(tables)
	m.mu.Unlock()
}

func (m *Manager) releaseCommittingLocked(tables []string) {
	for _, t := range tables {
		delete(m.committingTables, t)
	}
}

// failCommit marks rec Aborted and appends the corresponding WAL record.
// Every conflict kind aborts the operation and leaves persisted state
// untouched (spec.md §7).
func (m *Manager) failCommit(rec *Record, reason string) {
	m.mu.Lock()
	rec.Status = Aborted
	rec.AbortReason = reason
	m.mu.Unlock()
	_ = m.wal.append(walRecord{Kind: walAbort, TxID: rec.TxID, EpochID: m.epoch, Reason: reason})
}

// Abort marks txID Aborted and drops its in-memory writes.
func (m *Manager) Abort(txID uint64, reason string) error {
	m.mu.Lock()
	rec, err := m.mustPending(txID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	rec.Status = Aborted
	rec.AbortReason = reason
	rec.Writes = map[string]TableWrite{}
	m.mu.Unlock()

	return m.wal.append(walRecord{Kind: walAbort, TxID: txID, EpochID: m.epoch, Reason: reason})
}

// Get returns the in-memory Record for txID, as currently seen by this
// manager instance.
func (m *Manager) Get(txID uint64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.active[txID]
	if !ok {
		return Record{}, rhizoerr.TransactionNotFound(txID)
	}
	return *rec, nil
}

// Recover replays every WAL epoch and classifies each tx_id. When apply is
// true (the "recover_and_apply" operator variant), rolled-back transactions
// are durably marked Aborted; recover(false) is read-only.
func (m *Manager) Recover(apply bool) (RecoveryReport, error) {
	epochs, err := existingEpochs(m.root)
	if err != nil {
		return RecoveryReport{}, err
	}

	type txState struct {
		seenBegin bool
		terminal  string // "", "commit", "abort"
	}
	states := map[uint64]*txState{}
	var report RecoveryReport

	for _, epoch := range epochs {
		records, err := readEpochRecords(m.root, epoch)
		if err != nil {
			return RecoveryReport{}, err
		}
		for _, r := range records {
			if r.Kind == "" {
				report.Errors = append(report.Errors, ConsistencyIssue{Message: "unparseable WAL record"})
				continue
			}
			st, ok := states[r.TxID]
			if !ok {
				st = &txState{}
				states[r.TxID] = st
			}
			switch r.Kind {
			case walBegin:
				st.seenBegin = true
			case walWrite:
				if !st.seenBegin {
					report.Warnings = append(report.Warnings, ConsistencyIssue{TxID: r.TxID, Message: "write record without matching begin"})
				}
			case walCommit:
				if !st.seenBegin {
					report.Errors = append(report.Errors, ConsistencyIssue{TxID: r.TxID, Message: "commit record without matching begin"})
				}
				st.terminal = "commit"
			case walAbort:
				if !st.seenBegin {
					report.Warnings = append(report.Warnings, ConsistencyIssue{TxID: r.TxID, Message: "abort record without matching begin"})
				}
				st.terminal = "abort"
			}
		}
	}

	for txID, st := range states {
		switch st.terminal {
		case "commit":
			report.Replayed = append(report.Replayed, txID)
		case "abort":
			report.AlreadyAborted = append(report.AlreadyAborted, txID)
		default:
			report.RolledBack = append(report.RolledBack, txID)
			if apply {
				if err := m.wal.append(walRecord{Kind: walAbort, TxID: txID, EpochID: m.epoch, Reason: "rolled back on recovery"}); err != nil {
					return RecoveryReport{}, err
				}
			}
		}
	}

	sort.Slice(report.Replayed, func(i, j int) bool { return report.Replayed[i] < report.Replayed[j] })
	sort.Slice(report.AlreadyAborted, func(i, j int) bool { return report.AlreadyAborted[i] < report.AlreadyAborted[j] })
	sort.Slice(report.RolledBack, func(i, j int) bool { return report.RolledBack[i] < report.RolledBack[j] })

	return report, nil
}

// VerifyConsistency returns an empty slice iff the WAL is clean.
func (m *Manager) VerifyConsistency() ([]ConsistencyIssue, error) {
	report, err := m.Recover(false)
	if err != nil {
		return nil, err
	}
	issues := append([]ConsistencyIssue{}, report.Warnings...)
	issues = append(issues, report.Errors...)
	return issues, nil
}
