package sim

// PolicyKind selects how a sender's outbox updates reach a receiver's
// inbox on a given round (spec.md §4.8).
type PolicyKind int

const (
	// Perfect delivers every update immediately, in the order it was sent.
	Perfect PolicyKind = iota
	// Reordered delivers every update this round but in a permutation of
	// the sender's outbox order.
	Reordered
	// Delayed holds each update for DelayRounds full rounds before
	// delivery.
	Delayed
	// Partitioned drops every update silently.
	Partitioned
)

// Policy is the delivery behavior for one ordered (sender, receiver) pair.
type Policy struct {
	Kind        PolicyKind
	DelayRounds int // only meaningful when Kind == Delayed
}

func (p Policy) String() string {
	switch p.Kind {
	case Perfect:
		return "Perfect"
	case Reordered:
		return "Reordered"
	case Delayed:
		return "Delayed"
	case Partitioned:
		return "Partitioned"
	default:
		return "Unknown"
	}
}

type edge struct {
	from string
	to   string
}
