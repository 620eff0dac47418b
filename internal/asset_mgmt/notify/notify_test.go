package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
)

type collector struct {
	mu  sync.Mutex
	got []lifecycle.Event
}

func (c *collector) Notify(ev lifecycle.Event) {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []lifecycle.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]lifecycle.Event(nil), c.got...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := NewDispatcher(8)
	col := &collector{}
	d.Subscribe(col)
	d.Subscribe(SubscriberFunc(func(lifecycle.Event) { panic("bad subscriber") }))
	d.Subscribe(LogSubscriber())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Publish(lifecycle.Event{BorrowingID: "b1", To: lifecycle.Pending})
	d.Publish(lifecycle.Event{BorrowingID: "b1", From: lifecycle.Pending, To: lifecycle.Approved})

	require.Eventually(t, func() bool { return len(col.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	got := col.snapshot()
	assert.Equal(t, lifecycle.Pending, got[0].To)
	assert.Equal(t, lifecycle.Approved, got[1].To)
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	d := NewDispatcher(1)
	done := make(chan struct{})
	go func() {
		// worker 未起動でも詰まらない
		for i := 0; i < 100; i++ {
			d.Publish(lifecycle.Event{BorrowingID: "b"})
		}
		d.Close()
		d.Publish(lifecycle.Event{BorrowingID: "after-close"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestHub_BroadcastsToWebsocketClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub()
	r := gin.New()
	RegisterRoutes(r, h)
	srv := httptest.NewServer(r)
	defer srv.Close()
	defer h.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	h.Notify(lifecycle.Event{BorrowingID: "01J0", AssetID: 7, From: lifecycle.Approved, To: lifecycle.Returned, ActorID: "staff"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "borrowing.returned", msg.Type)
	assert.Equal(t, "01J0", msg.Event.BorrowingID)
	assert.EqualValues(t, 7, msg.Event.AssetID)
	assert.Equal(t, lifecycle.Approved, msg.Event.From)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
