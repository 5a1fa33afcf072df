package rhizoerr

import "fmt"

// Chunk store errors (spec.md §4.1).

func InvalidHash(hash string) *Error {
	return New(KindInvalidInput, "InvalidHash", fmt.Sprintf("not a 64-char hex digest: %q", hash))
}

func ChunkNotFound(hash string) *Error {
	return New(KindNotFound, "NotFound", fmt.Sprintf("chunk %s not found", hash))
}

func HashMismatch(expected, actual string) *Error {
	return New(KindIntegrity, "HashMismatch", fmt.Sprintf("expected %s, got %s", expected, actual))
}

func IO(op string, cause error) *Error {
	return Wrap(KindIO, "Io", op, cause)
}

// Merkle builder errors (spec.md §4.2).

func EmptyData() *Error {
	return New(KindInvalidInput, "EmptyData", "data must not be empty")
}

func InvalidChunkSize(size int) *Error {
	return New(KindInvalidInput, "InvalidChunkSize", fmt.Sprintf("chunk_size must be > 0, got %d", size))
}

func IntegrityError(expected, actual string) *Error {
	return New(KindIntegrity, "IntegrityError", fmt.Sprintf("expected %s, got %s", expected, actual))
}

// Catalog errors (spec.md §4.4).

func InvalidVersion(table string, want, got uint64) *Error {
	return New(KindInvalidInput, "InvalidVersion", fmt.Sprintf("table %s: expected version %d, got %d", table, want, got))
}

func TableNotFound(table string) *Error {
	return New(KindNotFound, "NotFound", fmt.Sprintf("table %s not found", table))
}

func VersionNotFound(table string, version uint64) *Error {
	return New(KindNotFound, "NotFound", fmt.Sprintf("table %s has no version %d", table, version))
}

func LatestPointerCorrupted(table string) *Error {
	return New(KindIntegrity, "LatestPointerCorrupted", fmt.Sprintf("table %s: latest pointer refers to a missing version", table))
}

// Branch manager errors (spec.md §4.5).

func InvalidBranchName(name string) *Error {
	return New(KindInvalidInput, "InvalidInput", fmt.Sprintf("invalid branch name: %q", name))
}

func BranchNotFound(name string) *Error {
	return New(KindNotFound, "NotFound", fmt.Sprintf("branch %q not found", name))
}

func BranchAlreadyExists(name string) *Error {
	return New(KindConflict, "Conflict", fmt.Sprintf("branch %q already exists", name))
}

func CannotDeleteDefaultBranch(name string) *Error {
	return New(KindInvalidInput, "InvalidInput", fmt.Sprintf("cannot delete default branch %q", name))
}

func MergeConflict(tables []string) *Error {
	return New(KindConflict, "MergeConflict", fmt.Sprintf("cannot fast-forward: tables modified on both sides: %v", tables))
}

// Transaction manager errors (spec.md §4.6).

func TransactionNotActive(txID uint64) *Error {
	return New(KindState, "TransactionNotActive", fmt.Sprintf("transaction %d is not active", txID))
}

func AlreadyCommitted(txID uint64) *Error {
	return New(KindState, "AlreadyCommitted", fmt.Sprintf("transaction %d already committed", txID))
}

func AlreadyAborted(txID uint64) *Error {
	return New(KindState, "AlreadyAborted", fmt.Sprintf("transaction %d already aborted", txID))
}

func SnapshotConflict(table string, readVersion, currentVersion uint64) *Error {
	return New(KindConflict, "SnapshotConflict", fmt.Sprintf("table %s: read version %d, current version %d", table, readVersion, currentVersion))
}

func WriteConflict(tables []string) *Error {
	return New(KindConflict, "WriteConflict", fmt.Sprintf("concurrent write conflict on tables: %v", tables))
}

func TransactionNotFound(txID uint64) *Error {
	return New(KindNotFound, "NotFound", fmt.Sprintf("transaction %d not found", txID))
}

// Algebraic engine errors (spec.md §4.7).

func TypeMismatch(opType string, a, b string) *Error {
	return New(KindConflict, "TypeMismatch", fmt.Sprintf("op %s: incompatible values %s and %s", opType, a, b))
}

func MergeConflictValue(reason string) *Error {
	return New(KindConflict, "Conflict", reason)
}

func NotFullyAlgebraic() *Error {
	return New(KindInvalidInput, "InvalidInput", "transaction contains a non-conflict-free operation")
}

func Overflow(op string) *Error {
	return New(KindOverflow, "Overflow", fmt.Sprintf("%s overflowed int64", op))
}

// Parquet codec errors (spec.md §4.3).

func InvalidColumn(name string, available []string) *Error {
	return New(KindInvalidInput, "InvalidColumn", fmt.Sprintf("unknown column %q, available: %v", name, available))
}

func RowCountOutOfBounds(msg string) *Error {
	return New(KindOverflow, "RowCount", msg)
}
