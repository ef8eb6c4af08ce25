package hooks

import (
	"testing"

	"github.com/ether/lastupdated-go/lib/hooks/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTypedHooksReceiveTheirContext(t *testing.T) {
	h := NewHook()
	var got []string
	h.EnqueueArtboardScheduledHook(func(ctx *events.ArtboardScheduledContext) {
		got = append(got, ctx.ArtboardID)
	})

	h.ExecuteHooks(ArtboardScheduled, &events.ArtboardScheduledContext{ArtboardID: "cover"})
	h.ExecuteHooks(ArtboardScheduled, "not a context")
	h.ExecuteHooks(PlaceholderApplied, &events.PlaceholderAppliedContext{ArtboardID: "other"})

	require.Equal(t, []string{"cover"}, got)
}

func TestDequeueHook(t *testing.T) {
	h := NewHook()
	calls := 0
	id := h.EnqueueStateResetHook(func(*events.StateResetContext) { calls++ })
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	h.ExecuteHooks(StateReset, &events.StateResetContext{DocumentID: "doc"})
	h.DequeueHook(StateReset, id)
	h.ExecuteHooks(StateReset, &events.StateResetContext{DocumentID: "doc"})
	require.Equal(t, 1, calls)
}

func TestNilHookIsNoop(t *testing.T) {
	var h *Hook
	require.NotPanics(t, func() {
		h.ExecuteHooks(ChangeDiscarded, &events.ChangeDiscardedContext{})
	})
}
