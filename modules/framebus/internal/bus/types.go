package bus

import (
	"errors"

	"github.com/rmussadi/userland/modules/camerabridge"
)

// Internal errors - mapped to public errors in framebus package
var (
	ErrBusClosed          = errors.New("framebus: bus is closed")
	ErrSubscriberExists   = errors.New("framebus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("framebus: subscriber not found")
	ErrNilChannel         = errors.New("framebus: nil channel provided")
	ErrReceiverClosed     = errors.New("framebus: receiver is closed")
)

// DropPolicy defines how the bus handles frames when subscriber cannot keep up
type DropPolicy int

const (
	DropNew DropPolicy = iota
	DropOld
)

func (p DropPolicy) String() string {
	switch p {
	case DropNew:
		return "drop_new"
	case DropOld:
		return "drop_old"
	default:
		return "unknown"
	}
}

// Frame is a captured frame. Data is shared by every subscriber and must
// be treated as read-only.
type Frame = camerabridge.Frame

// FrameReceiver provides blocking/non-blocking frame access
type FrameReceiver interface {
	Receive() (Frame, bool)
	TryReceive() (Frame, bool)
	Close()
}

// SubscriberStats tracks frame distribution metrics
type SubscriberStats struct {
	Policy DropPolicy
	// Sent counts frames handed over: queued on the channel for DropNew,
	// returned by Receive/TryReceive for DropOld.
	Sent    uint64
	Dropped uint64
}

// BusStats contains global and per-subscriber metrics
type BusStats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

// Bus distributes frames to multiple subscribers
type Bus interface {
	Subscribe(id string, ch chan<- Frame) error
	SubscribeDropOld(id string) (FrameReceiver, error)
	Publish(frame Frame)
	Unsubscribe(id string) error
	Stats(id string) (*SubscriberStats, error)
	BusStats() BusStats
	Close()
}
