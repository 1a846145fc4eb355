package server

import (
	"sync"

	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

// event is one unit of work for the loop. Everything that mutates lobby or
// player state arrives as one of these.
type event interface {
	isEvent()
}

// connectionMade: the listener accepted a new session.
type connectionMade struct {
	conn transport.Conn
}

// playerNameUpdated: a session finished its handshake.
type playerNameUpdated struct {
	player protocol.PlayerID
	name   string
}

// messageReceived: a session read one client message.
type messageReceived struct {
	player protocol.PlayerID
	msg    protocol.FromPlayer
}

// connectionLost: a session's stream failed; the player is gone.
type connectionLost struct {
	player protocol.PlayerID
}

// callback: a deferred mutation posted by a supervisor task.
type callback struct {
	fn func()
}

// shutdownEvent: first interrupt; broadcast and drain.
type shutdownEvent struct{}

func (connectionMade) isEvent()    {}
func (playerNameUpdated) isEvent() {}
func (messageReceived) isEvent()   {}
func (connectionLost) isEvent()    {}
func (callback) isEvent()          {}
func (shutdownEvent) isEvent()     {}

// eventQueue is an unbounded multi-producer single-consumer queue. Producers
// (session readers, the listener, supervisor tasks) never block; only the
// loop pops.
type eventQueue struct {
	mu    sync.Mutex
	items []event
	wake  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

// push appends an event. Never blocks.
func (q *eventQueue) push(e event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop removes the oldest event, blocking while the queue is empty.
func (q *eventQueue) pop() event {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return e
		}
		q.mu.Unlock()
		<-q.wake
	}
}

// len reports the number of queued events.
func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
