package generator

// State is the lifecycle stage of one sample slot.
type State int

const (
	Pending State = iota
	CombinationSelected
	Rendered
	Composited
	Augmented
	Persisted
	Failed
	Exhausted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case CombinationSelected:
		return "COMBINATION_SELECTED"
	case Rendered:
		return "RENDERED"
	case Composited:
		return "COMPOSITED"
	case Augmented:
		return "AUGMENTED"
	case Persisted:
		return "PERSISTED"
	case Failed:
		return "FAILED"
	case Exhausted:
		return "EXHAUSTED"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == Persisted || s == Failed || s == Exhausted
}
