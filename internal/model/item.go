package model

import (
	"regexp"
	"strings"
)

// DefaultMaxStackSize is the stack size used when an item does not define one.
const DefaultMaxStackSize = 64

var itemTypeRE = regexp.MustCompile(`^[a-z0-9_]+$`)

// An ItemType identifies a kind of item (e.g. "cobblestone").
type ItemType string

// ParseItemType normalizes raw and reports whether it is a valid item type name.
// The "minecraft:" namespace is accepted and stripped.
func ParseItemType(raw string) (ItemType, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "minecraft:")
	if !itemTypeRE.MatchString(s) {
		return "", false
	}
	return ItemType(s), true
}

// An ItemStack is an amount of items sharing the same type and cosmetic identity.
type ItemStack struct {
	Type         ItemType `json:"type"                     yaml:"type"`
	Amount       int      `json:"amount"                   yaml:"amount"`
	DisplayName  string   `json:"display_name,omitempty"   yaml:"name,omitempty"`
	MaxStackSize int      `json:"max_stack_size,omitempty" yaml:"max-stack-size,omitempty"`
}

// NewItemStack returns a stack of amount items of the given type.
func NewItemStack(t ItemType, amount int) *ItemStack {
	return &ItemStack{
		Type:   t,
		Amount: amount,
	}
}

// IsEmpty returns true if the stack holds nothing.
func (s *ItemStack) IsEmpty() bool {
	return s == nil || s.Type == "" || s.Amount <= 0
}

// MaxStack returns the maximum amount a single slot can hold for this stack.
func (s *ItemStack) MaxStack() int {
	if s.MaxStackSize <= 0 {
		return DefaultMaxStackSize
	}
	return s.MaxStackSize
}

// IsSimilar returns true if both stacks can be merged, ignoring their amounts.
func (s *ItemStack) IsSimilar(o *ItemStack) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return false
	}
	return s.Type == o.Type && s.DisplayName == o.DisplayName && s.MaxStack() == o.MaxStack()
}

// Clone returns a copy of the stack.
func (s *ItemStack) Clone() *ItemStack {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// WithAmount returns a copy of the stack holding n items.
func (s *ItemStack) WithAmount(n int) *ItemStack {
	c := s.Clone()
	c.Amount = n
	return c
}

// Label is the name used to order stacks: the display name when set, the type name otherwise.
func (s *ItemStack) Label() string {
	if s == nil {
		return ""
	}
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return string(s.Type)
}
