package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/key-management/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("should deliver asynchronously and drain", func() {
		var calls atomic.Int32
		bus.Subscribe(events.EventTypeKeyIssued, func(ctx context.Context, e events.Event) error {
			calls.Add(1)
			return nil
		})
		bus.Subscribe(events.EventTypeKeyIssued, func(ctx context.Context, e events.Event) error {
			calls.Add(1)
			return errors.New("ignored")
		})

		ev := events.NewKeyIssuedEvent("k1", "Офис 101", "123456789", "Иван Петров", "h1", time.Now())
		Expect(bus.Publish(context.Background(), ev)).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(bus.Drain(ctx)).To(Succeed())
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("should refuse publishes once draining has started", func() {
		var calls atomic.Int32
		bus.Subscribe(events.EventTypeKeyIssued, func(ctx context.Context, e events.Event) error {
			calls.Add(1)
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(bus.Drain(ctx)).To(Succeed())

		ev := events.NewKeyIssuedEvent("k1", "Офис 101", "123456789", "Иван Петров", "h1", time.Now())
		Expect(bus.Publish(context.Background(), ev)).To(MatchError(events.ErrDraining))
		Expect(bus.Drain(ctx)).To(Succeed())
		Expect(calls.Load()).To(BeZero())
	})

	It("should drain while publishers race with shutdown", func() {
		var calls atomic.Int32
		bus.Subscribe(events.EventTypeKeyIssued, func(ctx context.Context, e events.Event) error {
			calls.Add(1)
			return nil
		})
		ev := events.NewKeyIssuedEvent("k1", "Офис 101", "123456789", "Иван Петров", "h1", time.Now())

		var published atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if bus.Publish(context.Background(), ev) == nil {
						published.Add(1)
					}
				}
			}()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(bus.Drain(ctx)).To(Succeed())
		drained := calls.Load()
		wg.Wait()

		Expect(drained).To(Equal(published.Load()))
	})

	It("should hand handlers a context that outlives the publisher's", func() {
		seen := make(chan error, 1)
		bus.Subscribe(events.EventTypeKeyReturned, func(ctx context.Context, e events.Event) error {
			seen <- ctx.Err()
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(bus.Publish(ctx, events.NewKeyReturnedEvent("k1", "n", "b", "h", "r", time.Now()))).To(Succeed())
		Eventually(seen).Should(Receive(BeNil()))
	})

	It("should join synchronous handler failures", func() {
		bus.Subscribe(events.EventTypeKeyDeleted, func(ctx context.Context, e events.Event) error {
			return errors.New("first")
		})
		bus.Subscribe(events.EventTypeKeyDeleted, func(ctx context.Context, e events.Event) error {
			return errors.New("second")
		})

		err := bus.PublishSync(context.Background(), events.NewKeyDeletedEvent("k1", "123", "Иван Петров"))
		Expect(err).To(MatchError(ContainSubstring("first")))
		Expect(err).To(MatchError(ContainSubstring("second")))
	})

	It("should carry holder only for held deletions", func() {
		Expect(events.NewKeyDeletedEvent("k1", "1", "").Data).NotTo(HaveKey("holder"))
		Expect(events.NewKeyDeletedEvent("k1", "1", "A").Data).To(HaveKeyWithValue("holder", "A"))
	})

	It("should ignore events without subscribers", func() {
		Expect(bus.Publish(context.Background(), events.NewKeyAddedEvent("k1", "1"))).To(Succeed())
		Expect(bus.PublishSync(context.Background(), events.NewKeyAddedEvent("k1", "1"))).To(Succeed())
	})
})
