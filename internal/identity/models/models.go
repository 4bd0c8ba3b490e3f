// Package models defines the identity collaborator's record shape. This
// service never owns identity data; it only consumes the status snapshot.
package models

import (
	"time"

	dErrors "printtrace/pkg/domain-errors"
)

// Status is the registry's view of the person behind a fingerprint.
type Status string

const (
	StatusAlive    Status = "alive"
	StatusMissing  Status = "missing"
	StatusDeceased Status = "deceased"
)

// ParseStatus validates a wire-format status.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusAlive, StatusMissing, StatusDeceased:
		return Status(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported identity status %q", raw)
	}
}

// Inactive reports whether the person should no longer produce fresh
// fingerprint activity.
func (s Status) Inactive() bool {
	return s == StatusMissing || s == StatusDeceased
}

// IdentityStatus is the snapshot returned by the identity collaborator.
// LastKnownActivity is the boundary date for mismatch checks: for deceased
// persons the declared date of death, for missing persons the date last seen.
type IdentityStatus struct {
	Status            Status    `json:"status"`
	LastKnownActivity time.Time `json:"last_known_activity"`
}
