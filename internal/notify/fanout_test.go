package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/entity"
)

func newTestFanout(t *testing.T) *redisFanout {
	t.Helper()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &redisFanout{client: client, prefix: "branch:", logger: zap.NewNop()}
}

func TestRedisFanoutPublishSubscribe(t *testing.T) {
	f := newTestFanout(t)
	ctx := context.Background()

	events, cancel, err := f.Subscribe(ctx, "RES")
	require.NoError(t, err)
	defer cancel()

	payload := map[string]any{"order_id": 1, "number": "RES-20251007-0001"}
	require.NoError(t, f.Publish(ctx, "RES", "order:new", payload))

	select {
	case ev := <-events:
		assert.Equal(t, "order:new", ev.Name)
		var got map[string]any
		require.NoError(t, json.Unmarshal(ev.Payload, &got))
		assert.Equal(t, "RES-20251007-0001", got["number"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fanout event")
	}
}

func TestRedisFanoutBranchIsolation(t *testing.T) {
	f := newTestFanout(t)
	ctx := context.Background()

	resEvents, cancelRes, err := f.Subscribe(ctx, "RES")
	require.NoError(t, err)
	defer cancelRes()

	corEvents, cancelCor, err := f.Subscribe(ctx, "COR1")
	require.NoError(t, err)
	defer cancelCor()

	require.NoError(t, f.Publish(ctx, "COR1", "order:state", map[string]any{"state": "accepted"}))

	select {
	case ev := <-corEvents:
		assert.Equal(t, "order:state", ev.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event on the COR1 channel")
	}

	select {
	case ev := <-resEvents:
		t.Fatalf("unexpected event on the RES channel: %s", ev.Name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisFanoutValidatesInput(t *testing.T) {
	f := newTestFanout(t)
	ctx := context.Background()

	assert.Error(t, f.Publish(ctx, "", "order:new", nil))
	assert.Error(t, f.Publish(ctx, "RES", "", nil))

	_, _, err := f.Subscribe(ctx, "")
	assert.Error(t, err)
}

func TestRedisFanoutUnsubscribeClosesChannel(t *testing.T) {
	f := newTestFanout(t)
	ctx := context.Background()

	events, cancel, err := f.Subscribe(ctx, "RES")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the event channel to close")
	}
}

func TestNoopFanout(t *testing.T) {
	var f Fanout = noopFanout{}
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	assert.NoError(t, f.Publish(ctx, "RES", "order:new", nil))

	events, cancel, err := f.Subscribe(ctx, "RES")
	require.NoError(t, err)
	cancel()
	cancel() // idempotent

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected the event channel to close")
	}
}

func TestStatusNoticeRender(t *testing.T) {
	notice := StatusNotice{
		OrderNumber:      "RES-20251007-0001",
		State:            entity.StateAccepted,
		EstimatedMinutes: 35,
		BranchCode:       "RES",
	}
	assert.Equal(t, "Your order RES-20251007-0001 was accepted. Estimated time: 35 minutes.", notice.Render())

	notice.State = entity.StateReady
	assert.Contains(t, notice.Render(), "ready at branch RES")

	notice.State = entity.StateRejected
	assert.Contains(t, notice.Render(), "could not be taken")
}
