package model

import "strings"

// An OverflowPolicy tells what happens to items that cannot stay in a record.
type OverflowPolicy int

const (
	// Return gives the items back to the actor, the remainder is dropped.
	Return OverflowPolicy = iota
	// Drop places the items on the ground.
	Drop
	// Deny refuses inserts that do not fit. Items already inserted are handled like Return.
	Deny
)

// ParseOverflowPolicy parses raw and falls back to def when raw is unknown.
func ParseOverflowPolicy(raw string, def OverflowPolicy) OverflowPolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "return":
		return Return
	case "drop":
		return Drop
	case "deny":
		return Deny
	}
	return def
}

func (p OverflowPolicy) String() string {
	switch p {
	case Drop:
		return "drop"
	case Deny:
		return "deny"
	}
	return "return"
}
