package framebus

import "github.com/rmussadi/userland/modules/framebus/internal/bus"

// New creates a new FrameBus instance
func New() Bus {
	return bus.New()
}
