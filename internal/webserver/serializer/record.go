package serializer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mdouchement/chestlink/internal/model"
)

// TextRecords returns the text serialized form of the given models.
func TextRecords(records []*model.StorageRecord) string {
	sl := make([]string, 0, len(records))

	for _, r := range records {
		sl = append(sl, fmt.Sprintf("#%d %s (%s, %d slots)", r.ID, r.Name, r.Kind, r.Capacity()))
	}

	return strings.Join(sl, "\n")
}

// Records returns the serialized form of the given models.
func Records(records []*model.StorageRecord) []map[string]interface{} {
	sl := make([]map[string]interface{}, 0, len(records))

	for _, r := range records {
		sl = append(sl, Record(r))
	}

	return sl
}

// Record returns the serialized form of the given model.
func Record(r *model.StorageRecord) map[string]interface{} {
	upgrades := map[string]int{}
	for _, kind := range r.Upgrades.Kinds() {
		upgrades[string(kind)] = r.UpgradeLevel(kind)
	}

	shared := map[string]interface{}{}
	for grantee, access := range r.Shared(time.Now()) {
		shared[grantee.String()] = map[string]interface{}{
			"access":     access.Level.String(),
			"expires_at": access.ExpiresAt,
		}
	}

	return map[string]interface{}{
		"key":           r.Key,
		"id":            r.ID,
		"owner":         r.Owner.String(),
		"name":          r.Name,
		"type":          r.Kind.String(),
		"position":      r.Position,
		"capacity":      r.Capacity(),
		"used_slots":    r.Contents.UsedSlotCount(),
		"page_count":    r.PageCount(),
		"upgrades":      upgrades,
		"filter":        Filter(r.Filter),
		"shared":        shared,
		"created_at":    r.CreatedAt,
		"last_accessed": r.LastAccessedAt,
		"last_modified": r.LastModifiedAt,
	}
}

// Filter returns the serialized form of the given model.
func Filter(f *model.Filter) map[string]interface{} {
	if f == nil {
		return nil
	}

	return map[string]interface{}{
		"mode":    f.Mode.String(),
		"entries": f.Entries(),
	}
}

// Pages returns the serialized form of the given page definitions.
func Pages(pages []model.PageDefinition) []map[string]interface{} {
	sl := make([]map[string]interface{}, 0, len(pages))

	for _, page := range pages {
		sl = append(sl, map[string]interface{}{
			"index":         page.Index,
			"storage_start": page.StorageStart,
			"storage_len":   page.StorageLen,
			"view_size":     page.ViewSize,
			"blocked":       page.Blocked,
			"prev_slot":     page.PrevSlot,
			"info_slot":     page.InfoSlot,
			"next_slot":     page.NextSlot,
		})
	}

	return sl
}
