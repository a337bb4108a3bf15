package serializer

import (
	"time"

	"github.com/mdouchement/chestlink/internal/model"
)

// A Drop is a batch of items placed on the ground by an overflow.
type Drop struct {
	At      *model.Position
	Items   []*model.ItemStack
	Dropped time.Time
}

// View returns the serialized form of the given model.
func View(v *model.ViewHandle) map[string]interface{} {
	return map[string]interface{}{
		"handle":     v.Handle,
		"record":     v.Record.Key,
		"page_index": v.PageIndex,
		"page_count": v.PageCount,
		"grid":       Stacks(v.Grid),
		"blocked":    v.Blocked,
		"prev_slot":  v.PrevSlot,
		"info_slot":  v.InfoSlot,
		"next_slot":  v.NextSlot,
	}
}

// Stacks returns the serialized form of the given models. Empty slots are nil.
func Stacks(stacks []*model.ItemStack) []interface{} {
	sl := make([]interface{}, len(stacks))

	for i, stack := range stacks {
		if stack.IsEmpty() {
			continue
		}
		sl[i] = Stack(stack)
	}

	return sl
}

// Stack returns the serialized form of the given model.
func Stack(stack *model.ItemStack) map[string]interface{} {
	m := map[string]interface{}{
		"type":   stack.Type,
		"amount": stack.Amount,
	}
	if stack.DisplayName != "" {
		m["display_name"] = stack.DisplayName
	}
	return m
}

// Drops returns the serialized form of the given models.
func Drops(drops []Drop) []map[string]interface{} {
	sl := make([]map[string]interface{}, 0, len(drops))

	for _, drop := range drops {
		items := make([]interface{}, 0, len(drop.Items))
		for _, stack := range drop.Items {
			if !stack.IsEmpty() {
				items = append(items, Stack(stack))
			}
		}

		sl = append(sl, map[string]interface{}{
			"at":      drop.At,
			"items":   items,
			"dropped": drop.Dropped,
		})
	}

	return sl
}
