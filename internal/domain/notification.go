package domain

import "time"

// Notification kinds.
const (
	NotificationChangeSubmitted = "change_request.submitted"
	NotificationChangeAccepted  = "change_request.accepted"
	NotificationChangeDenied    = "change_request.denied"
)

// Notification is an in-app message for one user. Delivery is out of scope;
// the record is what clients read.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Kind      string     `json:"kind"`
	Details   string     `json:"details"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// NotificationKindFor maps a change request status to its notification kind.
func NotificationKindFor(status string) string {
	switch status {
	case ChangeStatusAccepted:
		return NotificationChangeAccepted
	case ChangeStatusDenied:
		return NotificationChangeDenied
	default:
		return NotificationChangeSubmitted
	}
}
