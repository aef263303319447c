package enums

import "fmt"

// RentalStatus tracks the lifecycle of a rental. Persisted by name.
type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "pending"
	RentalStatusActive    RentalStatus = "active"
	RentalStatusCompleted RentalStatus = "completed"
	RentalStatusCancelled RentalStatus = "cancelled"
)

var validRentalStatuses = []RentalStatus{
	RentalStatusPending,
	RentalStatusActive,
	RentalStatusCompleted,
	RentalStatusCancelled,
}

// rentalTransitions lists the allowed edges. Terminal states have none.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusPending: {RentalStatusActive, RentalStatusCancelled},
	RentalStatusActive:  {RentalStatusCompleted, RentalStatusCancelled},
}

// OccupyingRentalStatuses hold an item's calendar and take part in conflict checks.
var OccupyingRentalStatuses = []RentalStatus{RentalStatusPending, RentalStatusActive}

// String implements fmt.Stringer.
func (s RentalStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RentalStatus.
func (s RentalStatus) IsValid() bool {
	for _, candidate := range validRentalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}

// Occupies reports whether a rental in this status blocks the item's calendar.
func (s RentalStatus) Occupies() bool {
	return s == RentalStatusPending || s == RentalStatusActive
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s RentalStatus) CanTransitionTo(next RentalStatus) bool {
	for _, candidate := range rentalTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseRentalStatus converts raw input into a RentalStatus.
func ParseRentalStatus(value string) (RentalStatus, error) {
	for _, candidate := range validRentalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental status %q", value)
}
