package algebra

// OpType is the tagged variant over the operation classes spec.md §3
// defines: the first six are "conflict-free" (semilattice/Abelian), the
// rest are not.
type OpType int

const (
	SemilatticeMax OpType = iota
	SemilatticeMin
	SemilatticeUnion
	SemilatticeIntersect
	AbelianAdd
	AbelianMultiply
	GenericOverwrite
	GenericConditional
	Unknown
)

func (t OpType) String() string {
	switch t {
	case SemilatticeMax:
		return "SemilatticeMax"
	case SemilatticeMin:
		return "SemilatticeMin"
	case SemilatticeUnion:
		return "SemilatticeUnion"
	case SemilatticeIntersect:
		return "SemilatticeIntersect"
	case AbelianAdd:
		return "AbelianAdd"
	case AbelianMultiply:
		return "AbelianMultiply"
	case GenericOverwrite:
		return "GenericOverwrite"
	case GenericConditional:
		return "GenericConditional"
	default:
		return "Unknown"
	}
}

// ParseOpType parses the op-type wire name used in schema registry files.
func ParseOpType(s string) (OpType, bool) {
	switch s {
	case "SemilatticeMax":
		return SemilatticeMax, true
	case "SemilatticeMin":
		return SemilatticeMin, true
	case "SemilatticeUnion":
		return SemilatticeUnion, true
	case "SemilatticeIntersect":
		return SemilatticeIntersect, true
	case "AbelianAdd":
		return AbelianAdd, true
	case "AbelianMultiply":
		return AbelianMultiply, true
	case "GenericOverwrite":
		return GenericOverwrite, true
	case "GenericConditional":
		return GenericConditional, true
	case "Unknown":
		return Unknown, true
	default:
		return Unknown, false
	}
}

// IsConflictFree reports whether t is one of the six semilattice/Abelian
// operation types that merge without coordination.
func (t OpType) IsConflictFree() bool {
	switch t {
	case SemilatticeMax, SemilatticeMin, SemilatticeUnion, SemilatticeIntersect, AbelianAdd, AbelianMultiply:
		return true
	default:
		return false
	}
}

// IsSemilattice reports whether t is one of the four semilattice variants.
func (t OpType) IsSemilattice() bool {
	switch t {
	case SemilatticeMax, SemilatticeMin, SemilatticeUnion, SemilatticeIntersect:
		return true
	default:
		return false
	}
}

// IsAbelian reports whether t is one of the two Abelian variants.
func (t OpType) IsAbelian() bool {
	return t == AbelianAdd || t == AbelianMultiply
}

// CanMergeWith reports whether two operation types may be merged together;
// cross-type merge is never supported (spec.md §4.7).
func (t OpType) CanMergeWith(o OpType) bool {
	return t == o
}
