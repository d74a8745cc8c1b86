package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToAllHandlersFIFO(t *testing.T) {
	b := New(nil)
	var mu sync.Mutex
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		b.Subscribe(KindSystemEvent, func(Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	b.EmitSystem("s1", "heartbeat_started", nil)

	require.Equal(t, []int{0, 1, 2}, order)
}

func TestEmitIsolatesPanickingHandler(t *testing.T) {
	b := New(nil)
	called := false

	b.Subscribe(KindToolCall, func(Event) {
		panic("boom")
	})
	b.Subscribe(KindToolCall, func(Event) {
		called = true
	})

	require.NotPanics(t, func() {
		b.Emit(Event{Kind: KindToolCall})
	})
	require.True(t, called, "second handler must still run after the first panics")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	count := 0
	sub := b.Subscribe(KindAgentResponse, func(Event) { count++ })

	b.Emit(Event{Kind: KindAgentResponse})
	b.Unsubscribe(sub)
	b.Emit(Event{Kind: KindAgentResponse})

	require.Equal(t, 1, count)
}

func TestEmitOnlyDeliversToMatchingKind(t *testing.T) {
	b := New(nil)
	var got []Kind
	b.Subscribe(KindLLMRequest, func(ev Event) { got = append(got, ev.Kind) })

	b.Emit(Event{Kind: KindLLMResponse})
	b.Emit(Event{Kind: KindLLMRequest})

	require.Equal(t, []Kind{KindLLMRequest}, got)
}
