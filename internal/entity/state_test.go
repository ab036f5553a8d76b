package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerTarget(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
		want    State
		legal   bool
	}{
		{"accept_pending", StatePending, TriggerAccept, StateAccepted, true},
		{"confirm_payment", StatePendingPayment, TriggerConfirmPayment, StateAccepted, true},
		{"prepare_accepted", StateAccepted, TriggerPrepare, StateInPreparation, true},
		{"ready_in_preparation", StateInPreparation, TriggerReady, StateReady, true},
		{"deliver_ready", StateReady, TriggerDeliver, StateDelivered, true},
		{"reject_pending", StatePending, TriggerReject, StateRejected, true},
		{"reject_pending_payment", StatePendingPayment, TriggerReject, StateRejected, true},
		{"accept_ready", StateReady, TriggerAccept, "", false},
		{"accept_pending_payment", StatePendingPayment, TriggerAccept, "", false},
		{"reject_accepted", StateAccepted, TriggerReject, "", false},
		{"deliver_pending", StatePending, TriggerDeliver, "", false},
		{"prepare_delivered", StateDelivered, TriggerPrepare, "", false},
		{"confirm_payment_pending", StatePending, TriggerConfirmPayment, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.trigger.Target(tt.from)
			assert.Equal(t, tt.legal, ok)
			if tt.legal {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestApplyTransitionAppendsHistory(t *testing.T) {
	at := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	actorID := int64(7)
	order := &Order{
		State:        StatePending,
		StateHistory: []StateChange{{State: StatePending, At: at.Add(-time.Minute)}},
	}

	state, err := order.ApplyTransition(TriggerAccept, TransitionOptions{
		ActorID:          &actorID,
		EstimatedMinutes: 35,
		At:               at,
	})
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, state)
	assert.Equal(t, StateAccepted, order.State)
	assert.Equal(t, 35, order.EstimatedMinutes)
	require.Len(t, order.StateHistory, 2)
	last := order.StateHistory[1]
	assert.Equal(t, StateAccepted, last.State)
	assert.Equal(t, at, last.At)
	require.NotNil(t, last.ActorID)
	assert.Equal(t, actorID, *last.ActorID)
}

func TestApplyTransitionIllegalLeavesOrderUntouched(t *testing.T) {
	order := &Order{
		State:            StateReady,
		EstimatedMinutes: 40,
		StateHistory: []StateChange{
			{State: StatePending},
			{State: StateAccepted},
			{State: StateInPreparation},
			{State: StateReady},
		},
	}

	_, err := order.ApplyTransition(TriggerAccept, TransitionOptions{EstimatedMinutes: 90})
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StateReady, transitionErr.Current)
	assert.Equal(t, TriggerAccept, transitionErr.Trigger)

	assert.Equal(t, StateReady, order.State)
	assert.Equal(t, 40, order.EstimatedMinutes)
	assert.Len(t, order.StateHistory, 4)
}

func TestApplyTransitionRejectRecordsReason(t *testing.T) {
	order := &Order{
		State:        StatePending,
		StateHistory: []StateChange{{State: StatePending}},
	}

	_, err := order.ApplyTransition(TriggerReject, TransitionOptions{Reason: "sin stock"})
	require.NoError(t, err)

	assert.Equal(t, StateRejected, order.State)
	last := order.StateHistory[len(order.StateHistory)-1]
	assert.Equal(t, StateRejected, last.State)
	assert.Equal(t, "sin stock", last.Reason)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateDelivered.Terminal())
	assert.True(t, StateRejected.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateReady.Terminal())
}

func TestComputeTotals(t *testing.T) {
	items := []OrderItem{
		{UnitPrice: 1500, Quantity: 2},
		{UnitPrice: 800, Quantity: 1},
	}

	totals := ComputeTotals(items, 0, 0)
	assert.Equal(t, 3800.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.Discount)
	assert.Equal(t, 0.0, totals.DeliveryCost)
	assert.Equal(t, 3800.0, totals.Total)
}

func TestComputeTotalsNeverNegative(t *testing.T) {
	items := []OrderItem{{UnitPrice: 100, Quantity: 1}}

	totals := ComputeTotals(items, 500, 0)
	assert.Equal(t, 100.0, totals.Discount)
	assert.Equal(t, 0.0, totals.Total)

	totals = ComputeTotals(items, -10, -5)
	assert.Equal(t, 0.0, totals.Discount)
	assert.Equal(t, 0.0, totals.DeliveryCost)
	assert.Equal(t, 100.0, totals.Total)
}
