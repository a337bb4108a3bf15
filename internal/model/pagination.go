package model

import "sort"

// Grid geometry of a view.
const (
	RowSize        = 9
	MaxRows        = 6
	SinglePageMax  = RowSize * MaxRows
	StoragePerPage = RowSize * (MaxRows - 1)

	// NoSlot marks an absent navigation slot.
	NoSlot = -1
)

// A PageDefinition maps a range of storage slots onto a display grid.
type PageDefinition struct {
	Index        int
	StorageStart int
	StorageLen   int
	ViewSize     int
	Blocked      []int
	PrevSlot     int
	InfoSlot     int
	NextSlot     int
}

// IsBlocked returns true if the grid slot maps to no storage slot.
func (d PageDefinition) IsBlocked(slot int) bool {
	i := sort.SearchInts(d.Blocked, slot)
	return i < len(d.Blocked) && d.Blocked[i] == slot
}

// Paginate lays out capacity storage slots over fixed-size grids.
// Up to 54 slots fit a single page whose trailing slack is blocked. Larger capacities
// are split into pages of 45 storage slots with a navigation row at the bottom.
// A zero capacity yields a single page with no storage mapping, sized from base.
func Paginate(capacity, base int) []PageDefinition {
	if capacity <= 0 {
		return []PageDefinition{{
			ViewSize: max(RowSize, base),
			PrevSlot: NoSlot,
			InfoSlot: NoSlot,
			NextSlot: NoSlot,
		}}
	}

	if capacity <= SinglePageMax {
		rows := ceilDiv(capacity, RowSize)
		size := rows * RowSize

		var blocked []int
		for i := capacity; i < size; i++ {
			blocked = append(blocked, i)
		}

		return []PageDefinition{{
			StorageLen: capacity,
			ViewSize:   size,
			Blocked:    blocked,
			PrevSlot:   NoSlot,
			InfoSlot:   NoSlot,
			NextSlot:   NoSlot,
		}}
	}

	var pages []PageDefinition
	for start := 0; start < capacity; start += StoragePerPage {
		n := min(StoragePerPage, capacity-start)
		storageRows := ceilDiv(n, RowSize)
		size := min(MaxRows, storageRows+1) * RowSize
		nav := size - RowSize

		// Slack of the last storage row, then the whole navigation row.
		var blocked []int
		for i := n; i < nav; i++ {
			blocked = append(blocked, i)
		}
		for i := nav; i < size; i++ {
			blocked = append(blocked, i)
		}

		page := PageDefinition{
			Index:        len(pages),
			StorageStart: start,
			StorageLen:   n,
			ViewSize:     size,
			Blocked:      blocked,
			PrevSlot:     NoSlot,
			InfoSlot:     nav + 4,
			NextSlot:     NoSlot,
		}
		if page.Index > 0 {
			page.PrevSlot = nav
		}
		pages = append(pages, page)
	}

	// The last page is only known once every page is built.
	for i := 0; i < len(pages)-1; i++ {
		pages[i].NextSlot = pages[i].ViewSize - 1
	}

	return pages
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
