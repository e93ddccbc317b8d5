package model

// Status describes the lifecycle stage of a mission.
type Status string

const (
	// StatusPending marks a reservation whose path is not computed yet.
	StatusPending    Status = "PENDING"
	StatusDeploying  Status = "DEPLOYING"
	StatusFlying     Status = "FLYING"
	StatusDelivering Status = "DELIVERING"
	StatusReturning  Status = "RETURNING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// String returns the status tag.
func (s Status) String() string { return string(s) }

// Terminal returns true for COMPLETED, FAILED and CANCELLED.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
