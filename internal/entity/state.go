package entity

import (
	"fmt"
	"time"
)

// State is one lifecycle state of an order.
type State string

const (
	StatePending        State = "pending"
	StatePendingPayment State = "pending_payment"
	StateAccepted       State = "accepted"
	StateInPreparation  State = "in_preparation"
	StateReady          State = "ready"
	StateDelivered      State = "delivered"
	StateRejected       State = "rejected"
)

// Trigger is a lifecycle command issued against an order.
type Trigger string

const (
	TriggerAccept         Trigger = "accept"
	TriggerConfirmPayment Trigger = "confirm_payment"
	TriggerPrepare        Trigger = "prepare"
	TriggerReady          Trigger = "ready"
	TriggerDeliver        Trigger = "deliver"
	TriggerReject         Trigger = "reject"
)

// transitions is the single source of truth for lifecycle legality:
// trigger × source state → target state. Anything absent is illegal.
var transitions = map[Trigger]map[State]State{
	TriggerAccept:         {StatePending: StateAccepted},
	TriggerConfirmPayment: {StatePendingPayment: StateAccepted},
	TriggerPrepare:        {StateAccepted: StateInPreparation},
	TriggerReady:          {StateInPreparation: StateReady},
	TriggerDeliver:        {StateReady: StateDelivered},
	TriggerReject: {
		StatePending:        StateRejected,
		StatePendingPayment: StateRejected,
	},
}

// Terminal reports whether no further transitions can leave the state.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateRejected
}

// Target resolves the state a trigger leads to from the given source.
func (t Trigger) Target(from State) (State, bool) {
	to, ok := transitions[t][from]
	return to, ok
}

// TransitionError reports an attempted transition that is not in the table.
type TransitionError struct {
	Current State
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s from state %s", e.Trigger, e.Current)
}

// TransitionOptions carries the optional inputs of a lifecycle command.
type TransitionOptions struct {
	ActorID          *int64
	Reason           string
	EstimatedMinutes int
	At               time.Time
}

// ApplyTransition advances the order per the transition table, appending
// exactly one history entry. State and history mutate together or not at all:
// on an illegal trigger the order is left untouched.
func (o *Order) ApplyTransition(trigger Trigger, opts TransitionOptions) (State, error) {
	target, ok := trigger.Target(o.State)
	if !ok {
		return o.State, &TransitionError{Current: o.State, Trigger: trigger}
	}

	at := opts.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if trigger == TriggerAccept && opts.EstimatedMinutes > 0 {
		o.EstimatedMinutes = opts.EstimatedMinutes
	}

	o.State = target
	o.StateHistory = append(o.StateHistory, StateChange{
		State:   target,
		At:      at,
		ActorID: opts.ActorID,
		Reason:  opts.Reason,
	})
	o.UpdatedAt = at
	return target, nil
}
