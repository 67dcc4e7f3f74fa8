package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(BookingsChanged, func(e Event) { got = append(got, e) })
	bus.Subscribe(DashboardRefresh, func(Event) { t.Error("wrong type delivered") })

	bus.Publish(Event{Type: BookingsChanged, BookingID: "b1", Source: "user"})

	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].BookingID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.Subscribe(BookingsChanged, func(Event) { calls++ })
	assert.Equal(t, 1, bus.Subscribers(BookingsChanged))

	unsub()
	unsub()
	bus.Publish(Event{Type: BookingsChanged})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, bus.Subscribers(BookingsChanged))
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var unsub func()
	unsub = bus.Subscribe(BookingsChanged, func(Event) { unsub() })

	assert.NotPanics(t, func() { bus.Publish(Event{Type: BookingsChanged}) })
	assert.Equal(t, 0, bus.Subscribers(BookingsChanged))
}

func TestBus_Concurrent(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	n := 0
	for i := 0; i < 4; i++ {
		bus.Subscribe(BookingsChanged, func(Event) {
			mu.Lock()
			n++
			mu.Unlock()
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(Event{Type: BookingsChanged})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, n)
}
