package models

import "strings"

// Status is the lifecycle state of a return
type Status string

const (
	// StatusPending is the initial state of every return
	StatusPending Status = "Pending"
	// StatusApproved means the warehouse accepted the return
	StatusApproved Status = "Approved"
	// StatusRejected means the warehouse refused the return
	StatusRejected Status = "Rejected"
)

// Label returns the Turkish display text used by the web UI
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Bekliyor"
	case StatusApproved:
		return "Onaylandı"
	case StatusRejected:
		return "Reddedildi"
	default:
		return string(s)
	}
}

// IsDecision reports whether s is a valid target for a status update.
// Pending is never a target: decisions are terminal.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus accepts the canonical names and the Turkish labels, case-insensitively
func ParseStatus(raw string) (Status, bool) {
	v := strings.TrimSpace(raw)
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if strings.EqualFold(v, string(s)) || v == s.Label() {
			return s, true
		}
	}
	return "", false
}
