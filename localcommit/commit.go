// Package localcommit implements the coordination-free, algebraic
// local-commit protocol of spec.md §4.7: validating a transaction is fully
// algebraic, attaching a vector clock, and merging concurrently-committed
// updates deterministically.
package localcommit

import (
	"github.com/google/uuid"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/common/rhizoerr"
	"github.com/rhizodata/rhizo/vectorclock"
)

// Operation is one algebraic write (spec.md §3 "Algebraic Operation").
type Operation struct {
	Key    string
	OpType algebra.OpType
	Value  algebra.Value
}

// Transaction is an ordered list of algebraic operations plus metadata
// (spec.md §3 "Algebraic Transaction").
type Transaction struct {
	Ops      []Operation
	Metadata map[string]string
}

// IsFullyAlgebraic reports whether every operation's type is conflict-free.
func (tx Transaction) IsFullyAlgebraic() bool {
	for _, op := range tx.Ops {
		if !op.OpType.IsConflictFree() {
			return false
		}
	}
	return true
}

// CanCommitLocally reports whether tx is non-empty and fully algebraic
// (spec.md §4.7).
func (tx Transaction) CanCommitLocally() bool {
	return len(tx.Ops) > 0 && tx.IsFullyAlgebraic()
}

// VersionedUpdate is a locally-committed transaction wrapped with the
// clock and origin needed for gossip convergence (spec.md §3).
type VersionedUpdate struct {
	Operations []Operation
	Clock      vectorclock.Clock
	Origin     string
	UpdateID   string // empty if not assigned
}

// CommitLocal validates tx and, if it can be committed locally, ticks
// clock[node] and returns the resulting VersionedUpdate.
func CommitLocal(tx Transaction, node string, clock vectorclock.Clock) (VersionedUpdate, error) {
	if !tx.CanCommitLocally() {
		return VersionedUpdate{}, rhizoerr.NotFullyAlgebraic()
	}
	next := clock.Tick(node)
	return VersionedUpdate{
		Operations: tx.Ops,
		Clock:      next,
		Origin:     node,
		UpdateID:   uuid.NewString(),
	}, nil
}

// MergeUpdates groups operations by key and folds values with
// algebra.Merge, requiring that every key's ops share a single conflict-free
// op type. The merged clock is the componentwise max; the merged origin is
// the lexicographically smaller node id, a deterministic tie-break.
func MergeUpdates(u1, u2 VersionedUpdate) (VersionedUpdate, error) {
	type keyed struct {
		opType algebra.OpType
		value  algebra.Value
		seen   bool
	}
	byKey := map[string]*keyed{}
	order := []string{}

	apply := func(op Operation) error {
		k, ok := byKey[op.Key]
		if !ok {
			order = append(order, op.Key)
			byKey[op.Key] = &keyed{opType: op.OpType, value: op.Value, seen: true}
			if !op.OpType.IsConflictFree() {
				return rhizoerr.NotFullyAlgebraic()
			}
			return nil
		}
		if !k.opType.CanMergeWith(op.OpType) || !op.OpType.IsConflictFree() {
			return rhizoerr.TypeMismatch(op.Key, k.opType.String(), op.OpType.String())
		}
		result := algebra.Merge(k.opType, k.value, op.Value)
		switch result.Outcome {
		case algebra.OutcomeMerged:
			k.value = result.Value
		case algebra.OutcomeConflict:
			return rhizoerr.MergeConflictValue(result.Reason)
		default:
			return rhizoerr.TypeMismatch(op.Key, k.opType.String(), op.OpType.String())
		}
		return nil
	}

	for _, op := range u1.Operations {
		if err := apply(op); err != nil {
			return VersionedUpdate{}, err
		}
	}
	for _, op := range u2.Operations {
		if err := apply(op); err != nil {
			return VersionedUpdate{}, err
		}
	}

	ops := make([]Operation, 0, len(order))
	for _, k := range order {
		entry := byKey[k]
		ops = append(ops, Operation{Key: k, OpType: entry.opType, Value: entry.value})
	}

	origin := u1.Origin
	if u2.Origin < u1.Origin {
		origin = u2.Origin
	}

	return VersionedUpdate{
		Operations: ops,
		Clock:      vectorclock.Merge(u1.Clock, u2.Clock),
		Origin:     origin,
	}, nil
}

// MergeAll folds MergeUpdates across updates in order; fails on an empty
// slice.
func MergeAll(updates []VersionedUpdate) (VersionedUpdate, error) {
	if len(updates) == 0 {
		return VersionedUpdate{}, rhizoerr.New(rhizoerr.KindInvalidInput, "InvalidInput", "merge_all requires at least one update")
	}
	acc := updates[0]
	for _, u := range updates[1:] {
		merged, err := MergeUpdates(acc, u)
		if err != nil {
			return VersionedUpdate{}, err
		}
		acc = merged
	}
	return acc, nil
}
