package checkout

import (
	"errors"
	"fmt"
	"time"

	"ticket-seating/models"
)

type State string

const (
	StateSelecting       State = "selecting"
	StateHandedOff       State = "handed_off"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirmed       State = "confirmed"
	StateCancelled       State = "cancelled"
	StateExpired         State = "expired"
)

// Terminal reports whether no further payment step can happen.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled || s == StateExpired
}

type Event string

const (
	EventHandoff        Event = "handoff"
	EventRequestOptions Event = "request_options"
	EventConfirm        Event = "confirm"
	EventCancel         Event = "cancel"
	EventExpire         Event = "expire"
)

var ErrInvalidTransition = errors.New("checkout: invalid transition")

// transitions lists, per event, the states it may fire from and the state it
// leads to. Firing an event whose target is the current state is a no-op,
// except for handoff which may be repeated to replace the selection.
var transitions = map[Event]struct {
	from []State
	to   State
}{
	EventHandoff:        {from: []State{StateSelecting, StateHandedOff, StateCancelled, StateExpired}, to: StateHandedOff},
	EventRequestOptions: {from: []State{StateHandedOff}, to: StateAwaitingPayment},
	EventConfirm:        {from: []State{StateAwaitingPayment}, to: StateConfirmed},
	EventCancel:         {from: []State{StateHandedOff, StateAwaitingPayment}, to: StateCancelled},
	EventExpire:         {from: []State{StateHandedOff, StateAwaitingPayment}, to: StateExpired},
}

// Flow is the checkout state of one booking session.
type Flow struct {
	SessionID     string                 `json:"session_id"`
	EventID       string                 `json:"event_id,omitempty"`
	State         State                  `json:"state"`
	Options       []models.PaymentOption `json:"options,omitempty"`
	PaymentID     string                 `json:"payment_id,omitempty"`
	PaymentMethod string                 `json:"payment_method,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewFlow starts a flow in the selecting state.
func NewFlow(sessionID string) *Flow {
	return &Flow{SessionID: sessionID, State: StateSelecting}
}

// Next resolves the state ev leads to. It returns changed=false when the flow is
// already where ev would take it, and ErrInvalidTransition when ev cannot fire
// from the current state.
func (f *Flow) Next(ev Event) (next State, changed bool, err error) {
	t, ok := transitions[ev]
	if !ok {
		return f.State, false, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
	if f.State == t.to && ev != EventHandoff {
		return f.State, false, nil
	}
	for _, from := range t.from {
		if f.State == from {
			return t.to, true, nil
		}
	}
	return f.State, false, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, f.State)
}

// Option returns the generated option for a payment method.
func (f *Flow) Option(method string) (models.PaymentOption, bool) {
	for _, o := range f.Options {
		if o.Method == method {
			return o, true
		}
	}
	return models.PaymentOption{}, false
}
