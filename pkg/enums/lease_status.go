package enums

import "fmt"

// LeaseStatus tracks the lifecycle state of a lease. Draft and terminated
// states exist upstream but the scheduler only reasons about these two.
type LeaseStatus string

const (
	LeaseStatusActive  LeaseStatus = "active"
	LeaseStatusExpired LeaseStatus = "expired"
)

var validLeaseStatuses = []LeaseStatus{
	LeaseStatusActive,
	LeaseStatusExpired,
}

// String implements fmt.Stringer.
func (l LeaseStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LeaseStatus) IsValid() bool {
	for _, candidate := range validLeaseStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeaseStatus converts raw input into a LeaseStatus.
func ParseLeaseStatus(value string) (LeaseStatus, error) {
	for _, candidate := range validLeaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lease status %q", value)
}
