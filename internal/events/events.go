// Package events is the domain-event hook fired on bill state changes, for
// downstream listeners (audit trail, storage module, mail).
package events

import "sync"

// Action identifies a bill transition.
type Action string

const (
	ActionValid   Action = "valid"
	ActionCancel  Action = "cancel"
	ActionArchive Action = "archive"
	ActionConvert Action = "convert"
)

// Event carries the transition and the documents involved. NewBillID is zero
// unless the transition spawned a document (cancel, convert).
type Event struct {
	Action    Action
	BillID    int64
	NewBillID int64
}

// Listener receives published events.
type Listener func(Event)

// Dispatcher fans events out to subscribed listeners, synchronously and in
// subscription order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a listener.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Publish delivers an event to every listener.
func (d *Dispatcher) Publish(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listeners {
		l(e)
	}
}
