package hooks

import (
	"sync"

	"github.com/ether/lastupdated-go/lib/hooks/events"
	uuid2 "github.com/google/uuid"
)

const (
	ArtboardScheduled  = "artboardScheduled"
	PlaceholderApplied = "placeholderApplied"
	ChangeDiscarded    = "changeDiscarded"
	PaginationRebuilt  = "paginationRebuilt"
	StateReset         = "stateReset"
)

type Hook struct {
	mu    sync.RWMutex
	hooks map[string]map[string]func(ctx any)
}

func NewHook() *Hook {
	return &Hook{
		hooks: make(map[string]map[string]func(ctx any)),
	}
}

func (h *Hook) EnqueueArtboardScheduledHook(cb func(ctx *events.ArtboardScheduledContext)) string {
	return h.EnqueueHook(ArtboardScheduled, func(ctx any) {
		if c, ok := ctx.(*events.ArtboardScheduledContext); ok {
			cb(c)
		}
	})
}

func (h *Hook) EnqueuePlaceholderAppliedHook(cb func(ctx *events.PlaceholderAppliedContext)) string {
	return h.EnqueueHook(PlaceholderApplied, func(ctx any) {
		if c, ok := ctx.(*events.PlaceholderAppliedContext); ok {
			cb(c)
		}
	})
}

func (h *Hook) EnqueueChangeDiscardedHook(cb func(ctx *events.ChangeDiscardedContext)) string {
	return h.EnqueueHook(ChangeDiscarded, func(ctx any) {
		if c, ok := ctx.(*events.ChangeDiscardedContext); ok {
			cb(c)
		}
	})
}

func (h *Hook) EnqueuePaginationRebuiltHook(cb func(ctx *events.PaginationRebuiltContext)) string {
	return h.EnqueueHook(PaginationRebuilt, func(ctx any) {
		if c, ok := ctx.(*events.PaginationRebuiltContext); ok {
			cb(c)
		}
	})
}

func (h *Hook) EnqueueStateResetHook(cb func(ctx *events.StateResetContext)) string {
	return h.EnqueueHook(StateReset, func(ctx any) {
		if c, ok := ctx.(*events.StateResetContext); ok {
			cb(c)
		}
	})
}

func (h *Hook) EnqueueHook(key string, ctx func(ctx any)) string {
	var uuid = uuid2.New()
	h.mu.Lock()
	defer h.mu.Unlock()

	var _, ok = h.hooks[key]
	if !ok {
		h.hooks[key] = make(map[string]func(ctx any))
	}

	h.hooks[key][uuid.String()] = ctx

	return uuid.String()
}

func (h *Hook) DequeueHook(key, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hooks[key], id)
}

// ExecuteHooks runs every callback registered for key. A nil Hook is a no-op.
func (h *Hook) ExecuteHooks(key string, ctx any) {
	if h == nil {
		return
	}
	h.mu.RLock()
	callbacks := make([]func(ctx any), 0, len(h.hooks[key]))
	for _, v := range h.hooks[key] {
		callbacks = append(callbacks, v)
	}
	h.mu.RUnlock()

	for _, v := range callbacks {
		v(ctx)
	}
}
