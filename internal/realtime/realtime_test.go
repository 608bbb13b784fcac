package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
	"bus_tracker/internal/tracking"
)

var isbt = tracking.Point{Lat: 30.7046, Lon: 76.8018}

func testAuth(token string) (uint, error) {
	switch token {
	case "token-7":
		return 7, nil
	case "token-9":
		return 9, nil
	default:
		return 0, apperr.ErrUnauthenticated
	}
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(testAuth, 8)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token="+token), nil)
	if err != nil {
		t.Fatalf("dial with %s: %v", token, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no message, got %s", msg)
	}
}

func TestServeWS_RejectsMissingOrInvalidToken(t *testing.T) {
	hub, srv := newTestServer(t)

	for _, query := range []string{"", "?token=bogus"} {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, query), nil)
		if err == nil {
			_ = conn.Close()
			t.Fatalf("handshake %q should fail", query)
		}
		if !errors.Is(err, websocket.ErrBadHandshake) {
			t.Fatalf("expected bad handshake, got %v", err)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %+v", resp)
		}
	}
	if n := hub.ConnectionCount(); n != 0 {
		t.Fatalf("rejected handshakes registered %d connections", n)
	}
}

func TestServeWS_AcceptsAuthorizationHeader(t *testing.T) {
	hub, srv := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer token-9")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "registration", func() bool { return hub.ConnectionCount() == 1 })
	users := hub.ConnectedUsers()
	if len(users) != 1 || users[0] != 9 {
		t.Fatalf("connected users = %v", users)
	}
}

func TestHub_RemovesClientOnDisconnect(t *testing.T) {
	hub, srv := newTestServer(t)

	conn := dial(t, srv, "token-7")
	waitFor(t, "registration", func() bool { return hub.ConnectionCount() == 1 })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()

	waitFor(t, "removal", func() bool { return hub.ConnectionCount() == 0 })
	if users := hub.ConnectedUsers(); len(users) != 0 {
		t.Fatalf("group not cleaned up: %v", users)
	}
}

type fakeBuses struct {
	buses   []models.Bus
	fixes   map[string]tracking.LiveFix
	err     error
	liveErr error
}

func (f *fakeBuses) ListActiveBuses(context.Context) ([]models.Bus, error) {
	return f.buses, f.err
}

func (f *fakeBuses) LatestLiveFixes(context.Context, []string) (map[string]tracking.LiveFix, error) {
	return f.fixes, f.liveErr
}

func strPtr(s string) *string { return &s }

func seedBuses() *fakeBuses {
	return &fakeBuses{
		buses: []models.Bus{
			{ID: 1, Number: "PB20AB1234", Status: models.BusStatusActive, CurrentLocation: strPtr("30.7046,76.8018")},
			{ID: 3, Number: "CH01GA0001", Status: models.BusStatusActive, CurrentLocation: strPtr("garbage")},
		},
		fixes: map[string]tracking.LiveFix{
			"PB20AB1234": {BusNumber: "PB20AB1234", Latitude: 30.75, Longitude: 76.64, RecordedAt: time.Now()},
		},
	}
}

func TestBroadcaster_EveryClientGetsSameSnapshot(t *testing.T) {
	hub, srv := newTestServer(t)
	a := dial(t, srv, "token-7")
	b := dial(t, srv, "token-9")
	waitFor(t, "both clients", func() bool { return hub.ConnectionCount() == 2 })

	bc := NewBroadcaster(seedBuses(), hub, isbt, time.Hour, time.Second, nil)
	if err := bc.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	fa, fb := readFrame(t, a), readFrame(t, b)
	if fa.Event != EventBusLocationUpdate || fb.Event != EventBusLocationUpdate {
		t.Fatalf("events = %q, %q", fa.Event, fb.Event)
	}
	if string(fa.Data) != string(fb.Data) {
		t.Fatalf("clients got different snapshots:\n%s\n%s", fa.Data, fb.Data)
	}

	var items []BusLocation
	if err := json.Unmarshal(fa.Data, &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !items[0].IsLive || items[0].Latitude != 30.75 {
		t.Errorf("live fix not applied: %+v", items[0])
	}
	if items[1].IsLive || items[1].Latitude != isbt.Lat || items[1].Source != "no_data" {
		t.Errorf("malformed location should fall back to default: %+v", items[1])
	}
}

func TestBroadcaster_StoreFailureSkipsCycle(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv, "token-7")
	waitFor(t, "client", func() bool { return hub.ConnectionCount() == 1 })

	src := seedBuses()
	src.err = apperr.Transient("list active buses", errors.New("timeout"))
	bc := NewBroadcaster(src, hub, isbt, time.Hour, time.Second, nil)

	if err := bc.task.RunOnce(context.Background()); !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	expectSilence(t, conn)
}

func TestBroadcaster_NoClientsNoQuery(t *testing.T) {
	hub := NewHub(testAuth, 4)
	src := &fakeBuses{err: errors.New("must not be called")}
	bc := NewBroadcaster(src, hub, isbt, time.Hour, time.Second, nil)
	if err := bc.Tick(context.Background()); err != nil {
		t.Fatalf("Tick with no clients: %v", err)
	}
}

func TestActiveSnapshot_LiveLookupFailureDegrades(t *testing.T) {
	src := seedBuses()
	src.liveErr = errors.New("session table locked")

	items, err := ActiveSnapshot(context.Background(), src, isbt)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	if items[0].IsLive || items[0].Source != "stale" || items[0].Latitude != 30.7046 {
		t.Fatalf("expected stale snapshot, got %+v", items[0])
	}
}

type fakeNotifications struct {
	list   []models.Notification
	gotIDs []uint
	calls  int
}

func (f *fakeNotifications) NotificationsForUsers(_ context.Context, ids []uint) ([]models.Notification, error) {
	f.calls++
	f.gotIDs = ids
	var out []models.Notification
	for _, n := range f.list {
		for _, id := range ids {
			if n.UserID == id {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func TestDispatcher_DeliversOnlyToRecipient(t *testing.T) {
	hub, srv := newTestServer(t)
	a := dial(t, srv, "token-7")
	b := dial(t, srv, "token-9")
	waitFor(t, "both clients", func() bool { return hub.ConnectionCount() == 2 })

	now := time.Now().UTC()
	src := &fakeNotifications{list: []models.Notification{
		{ID: 2, UserID: 7, Message: "PB20AB1234 arriving at ISBT", Type: "arrival", SentAt: now},
		{ID: 1, UserID: 7, Message: "PB20AB1234 delayed", Type: "delay", SentAt: now.Add(-time.Minute)},
		{ID: 3, UserID: 42, Message: "not connected", Type: "info", SentAt: now},
	}}
	d := NewDispatcher(src, hub, time.Hour, time.Second, nil)

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	f := readFrame(t, a)
	if f.Event != EventNewNotification {
		t.Fatalf("event = %q", f.Event)
	}
	var got []models.Notification
	if err := json.Unmarshal(f.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("expected user 7's list newest first, got %+v", got)
	}

	expectSilence(t, b)

	// Full resend: the next cycle delivers the same list again.
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	again := readFrame(t, a)
	if string(again.Data) != string(f.Data) {
		t.Fatalf("second cycle differs:\n%s\n%s", again.Data, f.Data)
	}
}

func TestDispatcher_NoConnectionsIsNoop(t *testing.T) {
	src := &fakeNotifications{}
	d := NewDispatcher(src, NewHub(testAuth, 4), time.Hour, time.Second, nil)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if src.calls != 0 {
		t.Fatalf("store queried with nobody connected")
	}
}

func TestGroupByUser(t *testing.T) {
	groups := GroupByUser([]models.Notification{
		{ID: 5, UserID: 1}, {ID: 4, UserID: 2}, {ID: 3, UserID: 1},
	})
	if len(groups) != 2 || len(groups[1]) != 2 || groups[1][0].ID != 5 || groups[1][1].ID != 3 {
		t.Fatalf("unexpected grouping: %+v", groups)
	}
}

func TestHub_SlowClientDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(testAuth, 1)
	slow := &Client{ID: "slow", UserID: 7, send: make(chan []byte, 1), hub: hub}
	fast := &Client{ID: "fast", UserID: 9, send: make(chan []byte, 4), hub: hub}
	hub.register(slow)
	hub.register(fast)

	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		go func() {
			_, _ = hub.Broadcast(EventBusLocationUpdate, []int{i})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("broadcast blocked on a full client queue")
		}
	}

	if len(slow.send) != 1 {
		t.Fatalf("slow client queue = %d, want 1", len(slow.send))
	}
	if len(fast.send) != 3 {
		t.Fatalf("fast client queue = %d, want 3", len(fast.send))
	}
}

// Run with -race: connections join and leave while both fan-out paths
// iterate the delivery groups.
func TestHub_ConnectDisconnectDuringBroadcast(t *testing.T) {
	hub, srv := newTestServer(t)
	dial(t, srv, "token-7")
	waitFor(t, "stable client", func() bool { return hub.ConnectionCount() == 1 })

	stop := make(chan struct{})
	var senders sync.WaitGroup
	senders.Add(1)
	go func() {
		defer senders.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = hub.Broadcast(EventBusLocationUpdate, []BusLocation{{BusID: 1, BusNumber: "PB20AB1234"}})
			_, _ = hub.SendToUser(9, EventNewNotification, []models.Notification{{ID: 1, UserID: 9}})
			_ = hub.ConnectedUsers()
		}
	}()

	const churn = 40
	errs := make(chan error, churn)
	var clients sync.WaitGroup
	for i := 0; i < churn; i++ {
		clients.Add(1)
		go func() {
			defer clients.Done()
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=token-9"), nil)
			if err != nil {
				errs <- err
				return
			}
			time.Sleep(time.Duration(i%5) * time.Millisecond)
			_ = conn.Close()
		}()
	}
	clients.Wait()
	close(stop)
	senders.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("dial during broadcast: %v", err)
	}

	waitFor(t, "churned clients to leave", func() bool { return hub.ConnectionCount() == 1 })
	if users := hub.ConnectedUsers(); len(users) != 1 || users[0] != 7 {
		t.Fatalf("connected users = %v, want [7]", users)
	}

	dial(t, srv, "token-9")
	waitFor(t, "fresh client", func() bool { return hub.ConnectionCount() == 2 })
	if n, err := hub.SendToUser(9, EventNewNotification, []models.Notification{{ID: 2, UserID: 9}}); err != nil || n != 1 {
		t.Fatalf("SendToUser after churn = %d, %v; want 1", n, err)
	}
}

func TestHub_CloseDisconnectsAndRefuses(t *testing.T) {
	hub := NewHub(testAuth, 2)
	c := &Client{ID: "c", UserID: 7, send: make(chan []byte, 2), hub: hub}
	hub.register(c)

	hub.Close()
	if _, ok := <-c.send; ok {
		t.Fatal("send queue should be closed")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatal("connections remain after Close")
	}
	if hub.register(&Client{ID: "late", UserID: 9, send: make(chan []byte, 1), hub: hub}) {
		t.Fatal("register after Close should fail")
	}
	hub.unregister(c) // idempotent
}

func TestPeriodic_RecoversPanicAndKeepsTicking(t *testing.T) {
	var calls atomic.Int32
	p := &Periodic{
		Name:     "test-task",
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
		Tick: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("tick context has no deadline")
			}
			if calls.Add(1) == 1 {
				panic("boom")
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, "ticks after panic", func() bool { return calls.Load() >= 3 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestPeriodic_RunOnceReportsPanic(t *testing.T) {
	p := &Periodic{Name: "panicky", Tick: func(context.Context) error { panic("nil map") }}
	if err := p.RunOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("expected panic error, got %v", err)
	}
}

func TestPeriodic_TicksDoNotOverlap(t *testing.T) {
	var running, overlaps, calls atomic.Int32
	p := &Periodic{
		Name:     "slow-task",
		Interval: time.Millisecond,
		Tick: func(context.Context) error {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(15 * time.Millisecond)
			running.Add(-1)
			calls.Add(1)
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "a few ticks", func() bool { return calls.Load() >= 3 })
	if overlaps.Load() != 0 {
		t.Fatalf("ticks overlapped %d times", overlaps.Load())
	}
}
