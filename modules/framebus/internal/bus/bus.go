package bus

import (
	"sync"
	"sync/atomic"
)

type subscriberHolder struct {
	id      string
	policy  DropPolicy
	sent    atomic.Uint64
	dropped atomic.Uint64

	// For DropNew policy
	ch chan<- Frame

	// For DropOld policy
	holder *latestFrameHolder
}

type bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriberHolder
	totalPublished atomic.Uint64
	closed         bool
}

// New creates a new FrameBus instance
func New() Bus {
	return &bus{
		subscribers: make(map[string]*subscriberHolder),
	}
}

// Subscribe registers a channel with DropNew policy
func (b *bus) Subscribe(id string, ch chan<- Frame) error {
	if ch == nil {
		return ErrNilChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = &subscriberHolder{id: id, policy: DropNew, ch: ch}
	return nil
}

// SubscribeDropOld registers a subscriber with DropOld policy
func (b *bus) SubscribeDropOld(id string) (FrameReceiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	holder := &subscriberHolder{id: id, policy: DropOld}
	holder.holder = newLatestFrameHolder(&holder.sent)
	b.subscribers[id] = holder
	return holder.holder, nil
}

// Publish distributes frame to all subscribers without blocking.
// Publishing on a closed bus is a no-op.
func (b *bus) Publish(frame Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	b.totalPublished.Add(1)

	for _, holder := range b.subscribers {
		switch holder.policy {
		case DropNew:
			select {
			case holder.ch <- frame:
				holder.sent.Add(1)
			default:
				holder.dropped.Add(1)
			}

		case DropOld:
			// sent is counted by the receiver on hand-over; an unread
			// frame being replaced counts as dropped
			replaced, err := holder.holder.Set(frame)
			if err != nil || replaced {
				holder.dropped.Add(1)
			}
		}
	}
}

// Unsubscribe removes a subscriber
func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	holder, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}

	if holder.holder != nil {
		holder.holder.Close()
	}

	delete(b.subscribers, id)
	return nil
}

// Stats returns statistics for a subscriber
func (b *bus) Stats(id string) (*SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return nil, ErrSubscriberNotFound
	}

	return &SubscriberStats{
		Policy:  holder.policy,
		Sent:    holder.sent.Load(),
		Dropped: holder.dropped.Load(),
	}, nil
}

// BusStats returns a snapshot of global and per-subscriber counters.
// It keeps working after Close and reports the final counts.
func (b *bus) BusStats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}

	for id, holder := range b.subscribers {
		s := SubscriberStats{
			Policy:  holder.policy,
			Sent:    holder.sent.Load(),
			Dropped: holder.dropped.Load(),
		}
		result.TotalSent += s.Sent
		result.TotalDropped += s.Dropped
		result.Subscribers[id] = s
	}

	return result
}

// Close shuts down the bus and all DropOld receivers.
// Subscriber channels are not closed; their owners manage them.
func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, holder := range b.subscribers {
		if holder.holder != nil {
			holder.holder.Close()
		}
	}
}

// latestFrameHolder implements FrameReceiver for DropOld policy
type latestFrameHolder struct {
	mu        sync.Mutex
	cond      *sync.Cond
	frame     Frame
	seq       uint64
	delivered uint64
	closed    bool

	// sent counts frames handed to the reader
	sent *atomic.Uint64
}

func newLatestFrameHolder(sent *atomic.Uint64) *latestFrameHolder {
	h := &latestFrameHolder{sent: sent}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Set stores frame as the latest and reports whether an unread frame was replaced
func (h *latestFrameHolder) Set(frame Frame) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false, ErrReceiverClosed
	}

	replaced := h.seq > h.delivered
	h.frame = frame
	h.seq++
	h.cond.Broadcast()
	return replaced, nil
}

// Receive blocks until a frame newer than the last one received is
// available. It returns false once the receiver is closed.
func (h *latestFrameHolder) Receive() (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for h.seq == h.delivered && !h.closed {
		h.cond.Wait()
	}

	if h.closed {
		return Frame{}, false
	}

	h.delivered = h.seq
	h.sent.Add(1)
	return h.frame, true
}

// TryReceive returns the latest unread frame without blocking
func (h *latestFrameHolder) TryReceive() (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.seq == h.delivered {
		return Frame{}, false
	}

	h.delivered = h.seq
	h.sent.Add(1)
	return h.frame, true
}

// Close shuts down the receiver and wakes blocked Receive calls
func (h *latestFrameHolder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.cond.Broadcast()
}
