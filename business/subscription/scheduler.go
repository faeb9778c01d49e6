// Package subscription runs periodic polling loops on behalf of feed subscribers.
package subscription

import (
	"context"
	"log"
	"sync"
	"time"
)

// PollFunc performs one poll. A non-nil error switches the loop to its error
// backoff for the next attempt.
type PollFunc func(ctx context.Context) error

// Subscription is a handle on one running polling loop
type Subscription struct {
	id     int64
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Cancel stops the subscription's polling loop. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Done is closed once the polling loop has fully stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Scheduler owns a registry of polling loops so they can be cancelled together
type Scheduler struct {
	log    *log.Logger
	mu     sync.Mutex
	nextId int64
	subs   map[int64]*Subscription
}

// NewScheduler builds an empty Scheduler
func NewScheduler(log *log.Logger) *Scheduler {
	return &Scheduler{
		log:  log,
		subs: make(map[int64]*Subscription),
	}
}

// Subscribe starts a polling loop that calls poll immediately and then every
// interval. After a failed poll the next attempt runs after errorBackoff instead
// of interval. The loop runs until the subscription or ctx is cancelled.
func (s *Scheduler) Subscribe(ctx context.Context, interval time.Duration,
	errorBackoff time.Duration, poll PollFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.nextId++
	sub := &Subscription{
		id:     s.nextId,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	go s.run(ctx, sub, interval, errorBackoff, poll)
	return sub
}

func (s *Scheduler) run(ctx context.Context, sub *Subscription,
	interval time.Duration, errorBackoff time.Duration, poll PollFunc) {
	defer close(sub.done)
	defer s.remove(sub.id)
	for {
		wait := interval
		if err := poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Printf("subscription %d: poll failed, retrying in %v: %v",
				sub.id, errorBackoff, err)
			wait = errorBackoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Scheduler) remove(id int64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// Count returns the number of subscriptions still running
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// CancelAll stops every running subscription and waits for their loops to exit
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	for _, sub := range subs {
		<-sub.done
	}
}
