package domain

import (
	"time"

	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// Change request kinds.
const (
	ChangeKindCreate = "create"
	ChangeKindUpdate = "update"
)

// Change request status constants.
const (
	ChangeStatusPending  = "pending"
	ChangeStatusAccepted = "accepted"
	ChangeStatusDenied   = "denied"
)

// ChangeRequest is a proposed catalog mutation awaiting moderation. Rows are
// never deleted; the decision columns are the audit trail.
type ChangeRequest struct {
	ID            string      `json:"id"`
	RequesterID   string      `json:"requesterId"`
	Kind          string      `json:"kind"`
	TargetBookID  *string     `json:"targetBookId,omitempty"`
	Payload       BookPayload `json:"payload"`
	Status        string      `json:"status"`
	SubmittedAt   time.Time   `json:"submittedAt"`
	DecidedBy     *string     `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time  `json:"decidedAt,omitempty"`
	AppliedBookID *string     `json:"appliedBookId,omitempty"`
}

// ValidKinds returns all change request kinds.
func ValidKinds() []string {
	return []string{ChangeKindCreate, ChangeKindUpdate}
}

func IsValidKind(kind string) bool {
	for _, k := range ValidKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// ValidChangeStatuses returns all change request statuses.
func ValidChangeStatuses() []string {
	return []string{ChangeStatusPending, ChangeStatusAccepted, ChangeStatusDenied}
}

// AllowedChangeTransitions defines which status transitions are valid.
// Accepted and denied are terminal.
func AllowedChangeTransitions() map[string][]string {
	return map[string][]string{
		ChangeStatusPending:  {ChangeStatusAccepted, ChangeStatusDenied},
		ChangeStatusAccepted: {},
		ChangeStatusDenied:   {},
	}
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to string) bool {
	for _, s := range AllowedChangeTransitions()[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NewChangeRequest validates the kind/target pairing and the payload and
// returns a pending request. It does not check that the target book exists.
func NewChangeRequest(id, requesterID, kind string, targetBookID *string, payload BookPayload, now time.Time) (*ChangeRequest, error) {
	if !IsValidKind(kind) {
		return nil, apperrors.InvalidInput("kind must be one of: create, update")
	}
	if kind == ChangeKindCreate && targetBookID != nil {
		return nil, apperrors.InvalidInput("targetBookId must not be set for a create request")
	}
	if kind == ChangeKindUpdate && (targetBookID == nil || *targetBookID == "") {
		return nil, apperrors.InvalidInput("targetBookId is required for an update request")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return &ChangeRequest{
		ID:           id,
		RequesterID:  requesterID,
		Kind:         kind,
		TargetBookID: targetBookID,
		Payload:      payload,
		Status:       ChangeStatusPending,
		SubmittedAt:  now,
	}, nil
}

// Decide moves a pending request to a terminal status and records who did it.
func (c *ChangeRequest) Decide(status, adminID string, now time.Time) error {
	if !CanTransition(c.Status, status) {
		return apperrors.Conflict("change request " + c.ID + " is already " + c.Status)
	}
	c.Status = status
	c.DecidedBy = &adminID
	c.DecidedAt = &now
	return nil
}

// NotificationDetails is the message sent to the requester for the
// request's current status.
func (c *ChangeRequest) NotificationDetails() string {
	subject := "new book \"" + c.Payload.Title + "\""
	if c.Kind == ChangeKindUpdate {
		subject = "update to \"" + c.Payload.Title + "\""
	}
	switch c.Status {
	case ChangeStatusAccepted:
		return "Your request for " + subject + " was accepted."
	case ChangeStatusDenied:
		return "Your request for " + subject + " was denied."
	default:
		return "Your request for " + subject + " was submitted and is awaiting review."
	}
}
