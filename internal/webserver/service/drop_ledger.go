package service

import (
	"sync"
	"time"

	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/webserver/serializer"
	"github.com/mdouchement/logger"
)

// A DropLedger is the host of the HTTP surface: dropped items are kept in a bounded journal.
type DropLedger struct {
	log   logger.Logger
	mu    sync.Mutex
	limit int
	drops []serializer.Drop
}

// NewDropLedger returns a DropLedger keeping the last limit drops, all of them when limit <= 0.
func NewDropLedger(log logger.Logger, limit int) *DropLedger {
	return &DropLedger{
		log:   log.WithPrefix("[drops]"),
		limit: limit,
	}
}

// Drop implements manager.Host.
func (l *DropLedger) Drop(at *model.Position, stacks []*model.ItemStack) {
	items := make([]*model.ItemStack, 0, len(stacks))
	for _, stack := range stacks {
		if !stack.IsEmpty() {
			items = append(items, stack.Clone())
		}
	}
	if len(items) == 0 {
		return
	}

	var position *model.Position
	if at != nil {
		p := *at
		position = &p
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.drops = append(l.drops, serializer.Drop{
		At:      position,
		Items:   items,
		Dropped: time.Now(),
	})
	if l.limit > 0 && len(l.drops) > l.limit {
		l.drops = l.drops[len(l.drops)-l.limit:]
	}
	l.log.Debugf("%d stacks dropped at %v", len(items), position)
}

// Drops returns the journal, oldest first.
func (l *DropLedger) Drops() []serializer.Drop {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]serializer.Drop(nil), l.drops...)
}
