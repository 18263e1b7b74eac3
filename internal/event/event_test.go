package event_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepwise/prepwise/internal/event"
)

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"subscriber only receives its event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.started"),
						eventWithName("session.completed"),
					},
					subscribers: []subscriber{
						{name: "s1", subscribeTo: []string{"session.started"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("session.started")}, out.received["s1"])
			},
		},

		"repeated events are all delivered": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.expired"),
						eventWithName("session.expired"),
					},
					subscribers: []subscriber{
						{name: "s1", subscribeTo: []string{"session.expired"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["s1"], 2)
			},
		},

		"event fans out to every subscriber": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("interview.completed"),
					},
					subscribers: []subscriber{
						{name: "s1", subscribeTo: []string{"interview.completed"}},
						{name: "s2", subscribeTo: []string{"interview.completed"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("interview.completed")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("interview.completed")}, out.received["s2"])
			},
		},

		"multi-topic subscribers receive from each topic": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.started"),
						eventWithName("session.completed"),
						eventWithName("session.started"),
					},
					subscribers: []subscriber{
						{name: "s1", subscribeTo: []string{"session.started", "session.completed"}},
						{name: "s2", subscribeTo: []string{"session.completed"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["s1"], 3)
				assert.ElementsMatch(t, []event.Event{eventWithName("session.completed")}, out.received["s2"])
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_HandlerPanicDoesNotPoisonBus(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(2))

	var (
		mu       sync.Mutex
		received int
	)

	b.Subscribe("boom", func(ctx context.Context, e event.Event) error {
		panic("handler exploded")
	})
	b.Subscribe("boom", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		received++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 3; i++ {
		b.Publish(context.Background(), eventWithName("boom"))
	}
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, received)
}

func TestBus_HandlerErrorIsIsolated(t *testing.T) {
	b := event.NewBus()

	var (
		mu    sync.Mutex
		calls []string
	)

	b.Subscribe("e", func(ctx context.Context, e event.Event) error {
		return fmt.Errorf("handler failed")
	})
	b.Subscribe("e", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		calls = append(calls, e.Name())
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), eventWithName("e"))
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"e"}, calls)
}
