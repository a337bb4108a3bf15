package model

import "strings"

// A FilterMode tells how the filter entries are interpreted.
type FilterMode int

const (
	// Whitelist only lets the listed item types in.
	Whitelist FilterMode = iota
	// Blacklist rejects the listed item types.
	Blacklist
)

// ParseFilterMode parses raw and falls back to def when raw is unknown.
func ParseFilterMode(raw string, def FilterMode) FilterMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "whitelist":
		return Whitelist
	case "blacklist":
		return Blacklist
	}
	return def
}

func (m FilterMode) String() string {
	if m == Blacklist {
		return "blacklist"
	}
	return "whitelist"
}

// A Filter decides which item types a record accepts.
// Entries keep their insertion order.
type Filter struct {
	Mode    FilterMode
	entries []ItemType
}

// NewFilter returns a filter with the given entries, duplicates removed.
func NewFilter(mode FilterMode, entries ...ItemType) *Filter {
	f := &Filter{Mode: mode}
	for _, t := range entries {
		f.Add(t, 0)
	}
	return f
}

// Allows returns true if items of type t pass the filter.
func (f *Filter) Allows(t ItemType) bool {
	if t == "" {
		return false
	}
	if f.Mode == Whitelist {
		return f.Contains(t)
	}
	return !f.Contains(t)
}

// Contains returns true if t is listed.
func (f *Filter) Contains(t ItemType) bool {
	for _, e := range f.entries {
		if e == t {
			return true
		}
	}
	return false
}

// Add lists t. It returns false if t is already listed or the filter holds maxEntries entries.
// A maxEntries of 0 means unbounded.
func (f *Filter) Add(t ItemType, maxEntries int) bool {
	if t == "" || f.Contains(t) {
		return false
	}
	if maxEntries > 0 && len(f.entries) >= maxEntries {
		return false
	}
	f.entries = append(f.entries, t)
	return true
}

// Remove unlists t.
func (f *Filter) Remove(t ItemType) bool {
	for i, e := range f.entries {
		if e == t {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a copy of the listed item types.
func (f *Filter) Entries() []ItemType {
	return append([]ItemType(nil), f.entries...)
}

// Len returns the number of entries.
func (f *Filter) Len() int {
	return len(f.entries)
}

// Copy returns a deep copy of the filter.
func (f *Filter) Copy() *Filter {
	if f == nil {
		return nil
	}
	return NewFilter(f.Mode, f.entries...)
}
