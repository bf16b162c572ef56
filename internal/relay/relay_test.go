package relay_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"

	"canvas/internal/app"
	"canvas/internal/domain"
	"canvas/internal/relay"
	"canvas/internal/storage"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func attach(t *testing.T, ctx context.Context, url, id string) (*relay.Remote, *app.Loop) {
	t.Helper()
	loop := app.NewLoop(64)
	go loop.Run(ctx)
	r, err := relay.Attach(ctx, loop, relay.AttachOptions{
		URL:      url,
		Document: "board",
		ClientID: id,
		Viewport: [2]float64{600, 600},
		App:      app.Options{MaxShapes: 100, UseSignals: true},
	})
	assert.Equal(t, nil, err)
	return r, loop
}

// eventually polls cond on loop until it holds or a second passes.
func eventually(t *testing.T, ctx context.Context, loop *app.Loop, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ok := false
		if err := loop.Do(ctx, func() { ok = cond() }); err != nil {
			t.Fatalf("loop: %v", err)
		}
		if ok {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestRelay_ShapesAndPresenceReachPeers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := relay.NewServer(storage.NewMemoryStore(), nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	alice, aliceLoop := attach(t, ctx, wsURL(srv), "alice")
	bob, bobLoop := attach(t, ctx, wsURL(srv), "bob")

	assert.Equal(t, nil, aliceLoop.Do(ctx, func() { alice.App.CreateMany(3) }))
	assert.Equal(t, true, eventually(t, ctx, bobLoop, func() bool { return bob.App.Len() == 3 }))

	var first string
	assert.Equal(t, nil, aliceLoop.Do(ctx, func() {
		first = alice.App.Shapes()[0].ID
		alice.App.SetSelection(first)
	}))
	assert.Equal(t, true, eventually(t, ctx, bobLoop, func() bool {
		ids := bob.App.RemoteSelected()[first]
		return len(ids) == 1 && ids[0] == "alice"
	}))

	assert.Equal(t, nil, bobLoop.Do(ctx, func() { bob.App.DeleteAll() }))
	assert.Equal(t, true, eventually(t, ctx, aliceLoop, func() bool { return alice.App.Len() == 0 }))
}

func TestRelay_LateJoinerGetsSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := relay.NewServer(nil, nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	alice, aliceLoop := attach(t, ctx, wsURL(srv), "alice")
	assert.Equal(t, nil, aliceLoop.Do(ctx, func() { alice.App.CreateMany(5) }))
	// Wait for the acknowledgement so the server has sequenced the insert.
	assert.Equal(t, true, eventually(t, ctx, aliceLoop, func() bool {
		return alice.App.Len() == 5 && alice.App.ConnectionState() == domain.Connected
	}))
	time.Sleep(50 * time.Millisecond)

	carol, carolLoop := attach(t, ctx, wsURL(srv), "carol")
	assert.Equal(t, true, eventually(t, ctx, carolLoop, func() bool { return carol.App.Len() == 5 }))
}

func TestRelay_DuplicateClientRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(relay.NewServer(nil, nil).Handler())
	defer srv.Close()

	c, _, err := relay.Dial(ctx, wsURL(srv), "board", "dup", nil)
	assert.Equal(t, nil, err)
	defer c.Close()

	_, _, err = relay.Dial(ctx, wsURL(srv), "board", "dup", nil)
	assert.NotEqual(t, nil, err)
}

func TestRelay_ServerAssignsID(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(relay.NewServer(nil, nil).Handler())
	defer srv.Close()

	c, welcome, err := relay.Dial(ctx, wsURL(srv), "board", "", nil)
	assert.Equal(t, nil, err)
	defer c.Close()
	assert.NotEqual(t, "", welcome.ClientID)
	assert.Equal(t, welcome.ClientID, c.ID())
	assert.Equal(t, uint64(0), welcome.Snapshot.Seq)
}

func TestRelay_UnknownFrameIsRejected(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer(nil, nil).Handler())
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?doc=x&client=raw", nil)
	assert.Equal(t, nil, err)
	defer ws.Close()

	var welcome relay.Envelope
	assert.Equal(t, nil, ws.ReadJSON(&welcome))
	assert.Equal(t, relay.MsgWelcome, welcome.Type)

	assert.Equal(t, nil, ws.WriteJSON(relay.Envelope{Type: "bogus"}))
	var reply relay.Envelope
	assert.Equal(t, nil, ws.ReadJSON(&reply))
	assert.Equal(t, relay.MsgError, reply.Type)
	assert.Equal(t, true, strings.Contains(reply.Error, "protocol"))
}

func TestServer_CompactionPersists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemoryStore()
	server := relay.NewServer(store, nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	alice, aliceLoop := attach(t, ctx, wsURL(srv), "alice")
	assert.Equal(t, nil, aliceLoop.Do(ctx, func() { alice.App.CreateMany(2) }))
	time.Sleep(100 * time.Millisecond)

	server.CompactAll(ctx)
	snap, entries, err := store.Load(ctx, "board")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(snap.Shapes))
	assert.Equal(t, 0, len(entries))

	assert.NotEqual(t, nil, server.ScheduleCompaction("not a schedule"))
	assert.Equal(t, nil, server.ScheduleCompaction("@every 1h"))
	server.Shutdown(ctx)
}
