// Package bus is the asynchronous message channel between the engine and
// the control surface.
package bus

import (
	"log/slog"
	"sync"

	"reddit_filter/internal/model"
)

// Type identifies a message on the bus.
type Type string

// Message types exchanged between the control surface and the engine.
const (
	// SettingsUpdated is sent after every settings mutation; the engine
	// tears down and reinitializes.
	SettingsUpdated Type = "settingsUpdated"
	// RequestCounters asks the engine to push the current counters.
	RequestCounters Type = "requestCounters"
	// CountersUpdated carries the current counter state.
	CountersUpdated Type = "countersUpdated"
	// APIPauseToggled reports a pause-flag flip; informational only.
	APIPauseToggled Type = "apiPauseToggled"
)

// Message is one bus notification. Counters is set only for
// CountersUpdated, Paused only for APIPauseToggled.
type Message struct {
	Type     Type
	Counters model.CounterState
	Paused   bool
}

// Bus is the message channel contract.
type Bus interface {
	Send(msg Message)
	Subscribe() <-chan Message
}

// InProc is an in-process Bus. Delivery is non-blocking: a subscriber
// that stops draining its channel loses messages rather than stalling
// the sender.
type InProc struct {
	log *slog.Logger

	mu   sync.Mutex
	subs []chan Message
}

// NewInProc creates an in-process bus.
func NewInProc(log *slog.Logger) *InProc {
	return &InProc{log: log}
}

// Subscribe returns a channel receiving all future messages.
func (b *InProc) Subscribe() <-chan Message {
	ch := make(chan Message, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Send delivers msg to every subscriber.
func (b *InProc) Send(msg Message) {
	b.mu.Lock()
	subs := make([]chan Message, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			b.log.Warn("bus subscriber full, dropping message", "type", msg.Type)
		}
	}
}
