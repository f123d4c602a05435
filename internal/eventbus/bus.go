// Package eventbus fans out a stream of QueryEvents to any number of
// subscribers (metrics exporters, loggers, debug tooling) without letting a
// slow subscriber slow down the query path that publishes them.
package eventbus

import (
	"context"
	"sync"
)

// Topic identifies an event stream. This server only ever publishes on
// TopicQuery, but the bus keeps the topic indirection so a new stream can
// be added without reshaping Subscribe/Publish.
type Topic string

// TopicQuery is the only topic currently published: one QueryEvent per
// answered or rejected DNS query.
const TopicQuery Topic = "query"

// QueryEvent describes the outcome of handling a single DNS query. It is
// published after the response has been built (or after parsing failed),
// never before, so RCode always reflects what was actually sent. For a
// datagram that failed to parse no response is sent and every field is
// left at its zero value.
type QueryEvent struct {
	Question string // the QNAME as parsed, "" if parsing failed
	QType    uint16
	RCode    uint16
	Answered bool // true if an answer record was included
}

// Event is a published message: its topic plus the payload.
type Event struct {
	Topic Topic
	Data  QueryEvent
}

// Subscriber receives Events on Ch until Close is called.
type Subscriber struct {
	Ch   <-chan Event
	stop context.CancelFunc
}

// Bus is a single-topic-today, multi-subscriber publish channel. Publish
// never blocks: a subscriber whose buffer is full simply misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Event
	buf  int
}

// New returns a Bus whose per-subscriber channel has capacity buf.
func New(buf int) *Bus {
	return &Bus{subs: make(map[Topic][]chan Event), buf: buf}
}

// Publish fans data out to every current subscriber of topic. A subscriber
// whose channel is full has the event dropped for it rather than blocking
// the caller, since the caller is the query-handling path.
func (b *Bus) Publish(ctx context.Context, topic Topic, data QueryEvent) {
	b.mu.RLock()
	chs := b.subs[topic]
	b.mu.RUnlock()
	for _, ch := range chs {
		select {
		case ch <- Event{Topic: topic, Data: data}:
		default:
		}
	}
}

// Subscribe registers a new listener on topic. The subscription is torn
// down when ctx is done or Close is called, whichever comes first.
func (b *Bus) Subscribe(ctx context.Context, topic Topic) *Subscriber {
	ch := make(chan Event, b.buf)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		<-cctx.Done()
		b.mu.Lock()
		subs := b.subs[topic]
		for i, c := range subs {
			if c == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()
	return &Subscriber{Ch: ch, stop: cancel}
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscriber) Close() {
	if s.stop != nil {
		s.stop()
	}
}
