package model

import "github.com/pkg/errors"

// MaxCapacity is the largest number of slots a record can hold.
const MaxCapacity = 1 << 15

// ErrCapacityTooLarge is returned when a resize exceeds MaxCapacity.
var ErrCapacityTooLarge = errors.New("capacity too large")

// ItemSlots is a resizable array of optional item stacks.
// A nil entry is an empty slot.
type ItemSlots struct {
	slots []*ItemStack
}

// NewItemSlots returns slots of the given capacity filled with a copy of initial.
// Entries of initial beyond capacity are dropped.
func NewItemSlots(capacity int, initial []*ItemStack) *ItemSlots {
	if capacity < 0 {
		capacity = 0
	}
	s := &ItemSlots{
		slots: make([]*ItemStack, capacity),
	}
	s.SetContents(initial)
	return s
}

// Capacity returns the number of slots.
func (s *ItemSlots) Capacity() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// Get returns a copy of the stack at index i, nil when empty or out of range.
func (s *ItemSlots) Get(i int) *ItemStack {
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i].Clone()
}

// Resize grows the slots to n, keeping existing entries at their indices.
// Shrinking requests are ignored.
func (s *ItemSlots) Resize(n int) error {
	if n <= len(s.slots) {
		return nil
	}
	if n > MaxCapacity {
		return ErrCapacityTooLarge
	}

	resized := make([]*ItemStack, n)
	copy(resized, s.slots)
	s.slots = resized
	return nil
}

// SetContents replaces the contents, truncating or padding to the current capacity.
func (s *ItemSlots) SetContents(contents []*ItemStack) {
	target := make([]*ItemStack, len(s.slots))
	for i := 0; i < len(target) && i < len(contents); i++ {
		if contents[i].IsEmpty() {
			continue
		}
		target[i] = contents[i].Clone()
	}
	s.slots = target
}

// CopyContents returns a deep copy of every slot.
func (s *ItemSlots) CopyContents() []*ItemStack {
	contents := make([]*ItemStack, len(s.slots))
	for i, stack := range s.slots {
		contents[i] = stack.Clone()
	}
	return contents
}

// Clear empties every slot without changing the capacity.
func (s *ItemSlots) Clear() {
	s.slots = make([]*ItemStack, len(s.slots))
}

// UsedSlotCount returns the number of non-empty slots.
func (s *ItemSlots) UsedSlotCount() int {
	var used int
	for _, stack := range s.slots {
		if !stack.IsEmpty() {
			used++
		}
	}
	return used
}

// AddItem merges the given stacks into the slots.
// Existing similar stacks are topped up first, then empty slots are filled.
// It returns what could not be placed.
func (s *ItemSlots) AddItem(stacks ...*ItemStack) []*ItemStack {
	var leftovers []*ItemStack

	for _, input := range stacks {
		if input.IsEmpty() {
			continue
		}

		remaining := input.Amount
		limit := input.MaxStack()

		for i := 0; i < len(s.slots) && remaining > 0; i++ {
			slot := s.slots[i]
			if slot.IsEmpty() || !slot.IsSimilar(input) {
				continue
			}

			space := limit - slot.Amount
			if space <= 0 {
				continue
			}
			add := min(space, remaining)
			slot.Amount += add
			remaining -= add
		}

		for i := 0; i < len(s.slots) && remaining > 0; i++ {
			if !s.slots[i].IsEmpty() {
				continue
			}

			add := min(limit, remaining)
			s.slots[i] = input.WithAmount(add)
			remaining -= add
		}

		if remaining > 0 {
			leftovers = append(leftovers, input.WithAmount(remaining))
		}
	}

	return leftovers
}

// CanFullyStore reports whether AddItem would place the whole stack.
func (s *ItemSlots) CanFullyStore(stack *ItemStack) bool {
	if stack.IsEmpty() {
		return true
	}

	remaining := stack.Amount
	limit := stack.MaxStack()
	for _, slot := range s.slots {
		switch {
		case slot.IsEmpty():
			remaining -= min(remaining, limit)
		case slot.IsSimilar(stack):
			if space := limit - slot.Amount; space > 0 {
				remaining -= min(space, remaining)
			}
		}

		if remaining <= 0 {
			return true
		}
	}
	return remaining <= 0
}

// CountOf returns the total amount of items of type t.
func (s *ItemSlots) CountOf(t ItemType) int {
	var total int
	for _, stack := range s.slots {
		if !stack.IsEmpty() && stack.Type == t {
			total += stack.Amount
		}
	}
	return total
}

// Consume removes up to amount items of type t, lowest slot first.
// It returns the amount actually removed.
func (s *ItemSlots) Consume(t ItemType, amount int) int {
	var removed int
	for i := 0; i < len(s.slots) && removed < amount; i++ {
		stack := s.slots[i]
		if stack.IsEmpty() || stack.Type != t {
			continue
		}

		n := min(amount-removed, stack.Amount)
		stack.Amount -= n
		removed += n
		if stack.Amount <= 0 {
			s.slots[i] = nil
		}
	}
	return removed
}
