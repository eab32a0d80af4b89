// Package eventbus implements the in-process publish/subscribe bus that
// decouples source pollers and the Docker/Traefik watchers from the
// reconciler core. Publishers never know who (if anyone) is listening;
// subscribers register interest in a topic pattern and receive every
// matching event, enriched with bookkeeping fields.
//
// Dispatch is synchronous: Publish blocks until every matching subscriber's
// callback has returned. Subscribers that need to do slow work should hand
// the event off to their own goroutine rather than block the publisher.
package eventbus

import (
	"log/slog"
	"sync"
	"time"

	"gitlab.com/wovendns/woven/internal/matcher"
	"gitlab.com/wovendns/woven/internal/metrics"
)

// Event is a single message passed through the bus. Payload carries the
// event-specific data (e.g. a reconciler result, a detected workload change).
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// enrichedPayload returns a copy of the event's payload wrapped with bookkeeping
// fields when the payload is a map, matching the teacher's label-enrichment
// convention of never mutating caller-owned maps.
func (e Event) enrichedPayload() any {
	m, ok := e.Payload.(map[string]any)
	if !ok {
		return e.Payload
	}

	enriched := make(map[string]any, len(m)+2)
	for k, v := range m {
		enriched[k] = v
	}
	enriched["_timestamp"] = e.Timestamp
	enriched["_eventType"] = e.Topic
	return enriched
}

// Handler receives events whose topic matches a subscription pattern.
type Handler func(Event)

// subscription pairs a compiled topic matcher with its handler.
type subscription struct {
	id      uint64
	pattern string
	matcher *matcher.DomainMatcher
	handler Handler
}

// Bus is a topic-based, in-process pub/sub dispatcher. The zero value is not
// usable; construct with New.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a new event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for topics matching pattern. Patterns use
// the same glob syntax as provider domain matching ("*" matches any run of
// characters, "?" matches a single non-dot character); the literal pattern
// "*" subscribes to every topic. Returns an unsubscribe function.
func (b *Bus) Subscribe(pattern string, handler Handler) (func(), error) {
	m, err := newTopicMatcher(pattern)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscription{id: id, pattern: pattern, matcher: m, handler: handler}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	metrics.EventSubscribersGauge.Inc()
	b.logger.Debug("subscribed to event bus", slog.String("pattern", pattern))

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				metrics.EventSubscribersGauge.Dec()
				return
			}
		}
	}, nil
}

// Publish synchronously dispatches an event to every subscriber whose
// pattern matches the topic. Handler panics are recovered and logged so one
// misbehaving subscriber cannot take down the publisher or other
// subscribers.
func (b *Bus) Publish(topic string, payload any) {
	event := Event{Topic: topic, Payload: payload, Timestamp: time.Now()}
	enriched := event.enrichedPayload()

	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matcher.Matches(topic) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	metrics.EventsPublishedTotal.WithLabelValues(topic).Inc()

	for _, s := range matched {
		b.dispatch(s, Event{Topic: topic, Payload: enriched, Timestamp: event.Timestamp})
	}
}

func (b *Bus) dispatch(s *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventSubscriberPanics.WithLabelValues(event.Topic).Inc()
			b.logger.Error("event subscriber panicked",
				slog.String("topic", event.Topic),
				slog.String("pattern", s.pattern),
				slog.Any("panic", r),
			)
		}
	}()
	s.handler(event)
}

// SubscriberCount returns the current number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// newTopicMatcher builds a DomainMatcher over a single glob pattern. The
// matcher package is built for hostnames but its glob-to-regex conversion
// (case-insensitive, "." literal, "*"/"?" wildcards) applies unchanged to
// dot-separated event topics like "reconciler.*" or "source.traefik.error".
func newTopicMatcher(pattern string) (*matcher.DomainMatcher, error) {
	return matcher.NewDomainMatcher(matcher.DomainMatcherConfig{
		Includes: []string{pattern},
	})
}
