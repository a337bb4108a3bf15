package model

import (
	"fmt"
	"strings"
)

// A Kind is the physical shape of a bound container.
type Kind int

const (
	// Single is a one-block container.
	Single Kind = iota
	// Double is a two-block container pair.
	Double
)

// Kinds lists all the known kinds.
var Kinds = []Kind{Single, Double}

// ParseKind parses the name of a kind, case-insensitively.
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single":
		return Single, true
	case "double":
		return Double, true
	}
	return Single, false
}

// BaseCapacity returns the number of slots of a freshly bound container.
func (k Kind) BaseCapacity() int {
	if k == Double {
		return 54
	}
	return 27
}

func (k Kind) String() string {
	if k == Double {
		return "double"
	}
	return "single"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown kind %q", text)
	}
	*k = v
	return nil
}
