package task

import "fmt"

// Priority is a plain integer, persisted as-is and sorted strictly
// descending on fetch. The named levels are convenience constants, not an
// exhaustive enum: callers may submit any integer priority.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 10
	PriorityHigh   Priority = 20
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}
