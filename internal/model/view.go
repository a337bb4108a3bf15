package model

// Placeholder item types rendered on the non-storage slots of a view.
const (
	IconFiller   ItemType = "chestlink_filler"
	IconPrevious ItemType = "chestlink_previous_page"
	IconInfo     ItemType = "chestlink_storage_info"
	IconNext     ItemType = "chestlink_next_page"
)

// IsIcon returns true if the stack is a view placeholder.
func (s *ItemStack) IsIcon() bool {
	if s == nil {
		return false
	}
	switch s.Type {
	case IconFiller, IconPrevious, IconInfo, IconNext:
		return true
	}
	return false
}

// A ViewHandle is a paginated, fixed-size display window onto a record.
type ViewHandle struct {
	Handle    string
	Record    *StorageRecord
	PageIndex int
	PageCount int
	Grid      []*ItemStack
	Blocked   []int
	PrevSlot  int
	InfoSlot  int
	NextSlot  int

	page PageDefinition
}

// IsBlocked returns true if the grid slot maps to no storage slot.
func (v *ViewHandle) IsBlocked(slot int) bool {
	return v.page.IsBlocked(slot)
}

// Place puts stack on an unblocked grid slot. It returns false when the slot is blocked or out of the grid.
func (v *ViewHandle) Place(slot int, stack *ItemStack) bool {
	if slot < 0 || slot >= len(v.Grid) || v.IsBlocked(slot) {
		return false
	}
	if stack.IsEmpty() {
		v.Grid[slot] = nil
		return true
	}
	v.Grid[slot] = stack.Clone()
	return true
}

// SetGrid replaces every unblocked slot with the matching entry of grid.
func (v *ViewHandle) SetGrid(grid []*ItemStack) {
	for slot := range v.Grid {
		if v.IsBlocked(slot) {
			continue
		}

		var stack *ItemStack
		if slot < len(grid) {
			stack = grid[slot]
		}
		v.Place(slot, stack)
	}
}
