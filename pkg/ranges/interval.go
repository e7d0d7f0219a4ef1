package ranges

import "fmt"

// Interval is a half-open address range [Start, End) with the description
// published for it and an optional source file annotation.
type Interval struct {
	Start uint64
	End   uint64
	Name  string
	File  string
}

// Contains reports whether addr lies in [Start, End).
func (iv Interval) Contains(addr uint64) bool {
	return iv.Start <= addr && addr < iv.End
}

// Offset returns the distance of addr from the start of the interval.
func (iv Interval) Offset(addr uint64) uint64 {
	if addr < iv.Start {
		return 0
	}
	return addr - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("%016X-%016X %s", iv.Start, iv.End, iv.Name)
}

// Compare is the fuzzy matcher used to binary search by containment.
// Only query.Start is considered: the result is 0 when the candidate contains
// it, negative when it lies below the candidate and positive when it lies at
// or above candidate.End. Zero-width candidates never match.
func Compare(query, candidate Interval) int {
	switch {
	case candidate.Contains(query.Start):
		return 0
	case query.Start < candidate.Start:
		return -1
	default:
		return 1
	}
}
