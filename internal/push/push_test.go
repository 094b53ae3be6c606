package push

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/chorestar/internal/database"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pushEndpoint records deliveries and answers each path with a fixed status.
type pushEndpoint struct {
	mu     sync.Mutex
	hits   map[string]int
	status map[string]int
}

func newPushEndpoint(t *testing.T) (*pushEndpoint, *httptest.Server) {
	t.Helper()
	e := &pushEndpoint{hits: map[string]int{}, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.hits[r.URL.Path]++
		code, ok := e.status[r.URL.Path]
		if !ok {
			code = http.StatusCreated
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return e, srv
}

func (e *pushEndpoint) count(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits[path]
}

// subscriptionKeys returns browser-style p256dh and auth keys.
func subscriptionKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate subscription key: %v", err)
	}
	auth := make([]byte, 16)
	rand.Read(auth)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(auth)
}

func setupPushTest(t *testing.T) (*Service, *store.PushStore, *store.ChoreStore, *store.ChildStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	ps := store.NewPushStore(db)
	svc := NewService(Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv}, ps, testLogger())
	return svc, ps, store.NewChoreStore(db), store.NewChildStore(db)
}

func subscribe(t *testing.T, ps *store.PushStore, endpoint string) *model.PushSubscription {
	t.Helper()
	p256dh, auth := subscriptionKeys(t)
	sub, err := ps.CreateSubscription(endpoint, p256dh, auth, "test")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestServiceDisabledWithoutKeys(t *testing.T) {
	svc := NewService(Config{}, nil, testLogger())
	if svc.Enabled() {
		t.Error("service without VAPID keys should be disabled")
	}
	n, err := svc.Broadcast(Payload{Title: "x"})
	if err != nil || n != 0 {
		t.Errorf("Broadcast = (%d, %v), want (0, nil)", n, err)
	}
}

func TestBroadcastDropsExpiredSubscriptions(t *testing.T) {
	svc, ps, _, _ := setupPushTest(t)
	endpoint, srv := newPushEndpoint(t)
	endpoint.status["/gone"] = http.StatusGone

	subscribe(t, ps, srv.URL+"/live")
	subscribe(t, ps, srv.URL+"/gone")

	sent, err := svc.Broadcast(Payload{Title: "Hello", Body: "World"})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if endpoint.count("/live") != 1 || endpoint.count("/gone") != 1 {
		t.Errorf("hits = %v, want one per endpoint", endpoint.hits)
	}

	subs, err := ps.List()
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Endpoint != srv.URL+"/live" {
		t.Errorf("subscriptions = %+v, want only the live one", subs)
	}
}

func TestNotifyRoutineCompleted(t *testing.T) {
	svc, ps, _, _ := setupPushTest(t)
	endpoint, srv := newPushEndpoint(t)
	subscribe(t, ps, srv.URL+"/device")

	svc.NotifyRoutineCompleted(&model.Child{ID: 1, Name: "Ada"}, &model.Routine{ID: 3, Name: "Bedtime"})

	if got := endpoint.count("/device"); got != 1 {
		t.Errorf("deliveries = %d, want 1", got)
	}
}

func TestChoreReminderOncePerDay(t *testing.T) {
	svc, ps, chores, children := setupPushTest(t)
	endpoint, srv := newPushEndpoint(t)
	subscribe(t, ps, srv.URL+"/device")

	child, err := children.Create(model.Child{Name: "Ada"})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if _, err := chores.Create(model.Chore{ChildID: child.ID, Name: "Dishes", RewardAmount: 10, Active: true}); err != nil {
		t.Fatalf("create chore: %v", err)
	}

	s := NewScheduler(svc, ps, chores, 17, time.UTC, testLogger())

	before := time.Date(2026, 2, 4, 16, 59, 0, 0, time.UTC)
	if sent, err := s.checkChoreReminder(before); err != nil || sent {
		t.Errorf("before reminder hour = (%v, %v), want (false, nil)", sent, err)
	}

	at := time.Date(2026, 2, 4, 17, 0, 0, 0, time.UTC)
	if sent, err := s.checkChoreReminder(at); err != nil || !sent {
		t.Errorf("at reminder hour = (%v, %v), want (true, nil)", sent, err)
	}
	if sent, _ := s.checkChoreReminder(at.Add(time.Hour)); sent {
		t.Error("reminder should go out once per day")
	}
	if got := endpoint.count("/device"); got != 1 {
		t.Errorf("deliveries = %d, want 1", got)
	}

	if sent, _ := s.checkChoreReminder(at.AddDate(0, 0, 1)); !sent {
		t.Error("reminder should go out again the next day")
	}
}

func TestChoreReminderSkipsWhenAllDone(t *testing.T) {
	svc, ps, chores, children := setupPushTest(t)
	endpoint, srv := newPushEndpoint(t)
	subscribe(t, ps, srv.URL+"/device")

	child, _ := children.Create(model.Child{Name: "Ada"})
	chore, err := chores.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	// Wednesday 2026-02-04, week of 2026-02-01
	at := time.Date(2026, 2, 4, 18, 0, 0, 0, time.UTC)
	if _, err := chores.InsertCompletion(chore.ID, 3, "2026-02-01", at); err != nil {
		t.Fatalf("insert completion: %v", err)
	}

	s := NewScheduler(svc, ps, chores, 17, time.UTC, testLogger())
	if _, err := s.checkChoreReminder(at); err != nil {
		t.Fatalf("check reminder: %v", err)
	}
	if got := endpoint.count("/device"); got != 0 {
		t.Errorf("deliveries = %d, want 0", got)
	}
}

func TestSchedulerStopSafety(t *testing.T) {
	svc, ps, chores, _ := setupPushTest(t)
	s := NewScheduler(svc, ps, chores, 17, nil, testLogger())

	s.Stop() // before start
	s.Start(t.Context())
	s.Stop()
	s.Stop()
}
