package model

import (
	"strings"
	"time"
)

// An AccessLevel is what a grantee may do on a shared record.
type AccessLevel int

const (
	// View allows to look at the contents.
	View AccessLevel = iota
	// Modify allows to change the contents.
	Modify
)

// ParseAccessLevel parses the name of an access level, case-insensitively.
func ParseAccessLevel(raw string) (AccessLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "view":
		return View, true
	case "modify":
		return Modify, true
	}
	return View, false
}

func (l AccessLevel) String() string {
	if l == Modify {
		return "modify"
	}
	return "view"
}

// SharedAccess is a grant on a record, optionally expiring.
type SharedAccess struct {
	Level     AccessLevel
	ExpiresAt *time.Time
}

// IsExpired returns true if the grant expired at or before now.
func (a SharedAccess) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}
