package escrow

// Status tracks the one-directional lifecycle of an escrow instance.
type Status byte

const (
	StatusEmpty    Status = 0x01 // no deposit yet
	StatusFunded   Status = 0x02 // deposit in custody, awaiting arbiter decision
	StatusReleased Status = 0x03 // paid out to beneficiary, terminal
	StatusRefunded Status = 0x04 // returned to depositor, terminal
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusFunded:
		return "funded"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded
}
