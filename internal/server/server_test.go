package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cws "github.com/coder/websocket"

	"github.com/dukerupert/chorestar/internal/database"
	"github.com/dukerupert/chorestar/internal/ledger"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/reward"
	"github.com/dukerupert/chorestar/internal/tracker"
	ws "github.com/dukerupert/chorestar/internal/websocket"
)

const testWeek = "2026-02-01"

func setupServer(t *testing.T, rateLimit int) (*Server, *httptest.Server) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Config{Location: time.UTC, RateLimit: rateLimit, ReminderHour: 17}, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

// call sends a JSON request and decodes the response into out when out is non-nil.
func call(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type weekResp struct {
	tracker.View
	Display struct {
		TaskEarnings  string `json:"task_earnings"`
		FlatRateTotal string `json:"flat_rate_total"`
	} `json:"display"`
}

type toggleResp struct {
	Completed bool     `json:"completed"`
	Week      weekResp `json:"week"`
}

type errResp struct {
	Error string `json:"error"`
}

func createChild(t *testing.T, ts *httptest.Server, name string) model.Child {
	t.Helper()
	var c model.Child
	if code := call(t, ts, "POST", "/api/children", map[string]string{"name": name}, &c); code != http.StatusCreated {
		t.Fatalf("create child status = %d, want %d", code, http.StatusCreated)
	}
	return c
}

func createChore(t *testing.T, ts *httptest.Server, childID int64, name string, reward int) model.Chore {
	t.Helper()
	var c model.Chore
	path := fmt.Sprintf("/api/children/%d/chores", childID)
	if code := call(t, ts, "POST", path, map[string]any{"name": name, "reward_amount": reward}, &c); code != http.StatusCreated {
		t.Fatalf("create chore status = %d, want %d", code, http.StatusCreated)
	}
	return c
}

func toggle(t *testing.T, ts *httptest.Server, childID, choreID int64, day int) (int, toggleResp) {
	t.Helper()
	var out toggleResp
	path := fmt.Sprintf("/api/children/%d/week/toggle", childID)
	code := call(t, ts, "POST", path, map[string]any{"chore_id": choreID, "day_of_week": day, "week_start": testWeek}, &out)
	return code, out
}

func TestHealth(t *testing.T) {
	_, ts := setupServer(t, 100)

	var out map[string]any
	if code := call(t, ts, "GET", "/health", nil, &out); code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %v, want ok", out["status"])
	}
}

func TestChildValidation(t *testing.T) {
	_, ts := setupServer(t, 100)

	var e errResp
	if code := call(t, ts, "POST", "/api/children", map[string]string{"name": "  "}, &e); code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", code, http.StatusBadRequest)
	}
	if e.Error != "name is required" {
		t.Errorf("error = %q, want %q", e.Error, "name is required")
	}

	if code := call(t, ts, "PUT", "/api/children/99", map[string]string{"name": "Bo"}, nil); code != http.StatusNotFound {
		t.Errorf("update missing child status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestWeekToggleAndSummary(t *testing.T) {
	_, ts := setupServer(t, 100)

	child := createChild(t, ts, "Ada")
	chore := createChore(t, ts, child.ID, "Dishes", 25)

	var fs model.FamilySettings
	if code := call(t, ts, "PUT", "/api/settings", map[string]any{"daily_reward": 10, "weekly_bonus": 100}, &fs); code != http.StatusOK {
		t.Fatalf("update settings status = %d", code)
	}
	if fs.Currency != "USD" {
		t.Errorf("currency = %q, want USD kept", fs.Currency)
	}

	code, out := toggle(t, ts, child.ID, chore.ID, 0)
	if code != http.StatusOK {
		t.Fatalf("toggle status = %d, want %d", code, http.StatusOK)
	}
	if !out.Completed {
		t.Error("first toggle should complete the chore")
	}
	s := out.Week.Summary
	if s.TaskEarnings != 25 || s.DailyEarnings != 10 || s.PerfectDays != 1 {
		t.Errorf("summary = %+v, want task 25, daily 10, perfect days 1", s)
	}
	if s.WeeklyBonus != 0 {
		t.Errorf("weekly bonus = %d, want 0 for a partial week", s.WeeklyBonus)
	}
	if !strings.Contains(out.Week.Display.TaskEarnings, "0.25") {
		t.Errorf("display task earnings = %q, want it to contain 0.25", out.Week.Display.TaskEarnings)
	}

	code, out = toggle(t, ts, child.ID, chore.ID, 0)
	if code != http.StatusOK || out.Completed {
		t.Errorf("second toggle = (%d, %v), want (200, false)", code, out.Completed)
	}
	if out.Week.Summary.TaskEarnings != 0 {
		t.Errorf("task earnings = %d, want 0 after double toggle", out.Week.Summary.TaskEarnings)
	}

	// fill the whole week for the bonus
	for day := 0; day < ledger.DaysPerWeek; day++ {
		toggle(t, ts, child.ID, chore.ID, day)
	}
	var week weekResp
	path := fmt.Sprintf("/api/children/%d/week?start=%s", child.ID, testWeek)
	if code := call(t, ts, "GET", path, nil, &week); code != http.StatusOK {
		t.Fatalf("get week status = %d", code)
	}
	if len(week.Grid) != 1 || week.Grid[0].Count != 7 {
		t.Fatalf("grid = %+v, want one row with 7 completions", week.Grid)
	}
	if week.Summary.FlatRateTotal != 170 || week.Summary.CompletionPercent != 100 {
		t.Errorf("summary = %+v, want flat rate 170 at 100%%", week.Summary)
	}

	var hist reward.HistorySummary
	path = fmt.Sprintf("/api/children/%d/history", child.ID)
	if code := call(t, ts, "GET", path, nil, &hist); code != http.StatusOK {
		t.Fatalf("history status = %d", code)
	}
	if len(hist.Weeks) != 1 || hist.TaskEarnings != 175 || hist.PerfectWeeks != 1 {
		t.Errorf("history = %+v, want 1 week, 175 task earnings, 1 perfect week", hist)
	}
}

func TestWeekToggleErrors(t *testing.T) {
	_, ts := setupServer(t, 100)

	ada := createChild(t, ts, "Ada")
	bo := createChild(t, ts, "Bo")
	chore := createChore(t, ts, ada.ID, "Dishes", 25)

	if code, _ := toggle(t, ts, ada.ID, chore.ID, 7); code != http.StatusBadRequest {
		t.Errorf("bad day status = %d, want %d", code, http.StatusBadRequest)
	}
	if code, _ := toggle(t, ts, bo.ID, chore.ID, 1); code != http.StatusNotFound {
		t.Errorf("other child's chore status = %d, want %d", code, http.StatusNotFound)
	}
	if code, _ := toggle(t, ts, 999, chore.ID, 1); code != http.StatusNotFound {
		t.Errorf("missing child status = %d, want %d", code, http.StatusNotFound)
	}

	path := fmt.Sprintf("/api/children/%d/week?start=2026-02-03", ada.ID)
	if code := call(t, ts, "GET", path, nil, nil); code != http.StatusBadRequest {
		t.Errorf("non-Sunday week status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestNewChoreReloadsBoard(t *testing.T) {
	_, ts := setupServer(t, 100)

	child := createChild(t, ts, "Ada")
	first := createChore(t, ts, child.ID, "Dishes", 25)
	toggle(t, ts, child.ID, first.ID, 2)

	// the board is now cached; a new chore must still show up
	second := createChore(t, ts, child.ID, "Laundry", 40)
	code, out := toggle(t, ts, child.ID, second.ID, 2)
	if code != http.StatusOK {
		t.Fatalf("toggle new chore status = %d, want %d", code, http.StatusOK)
	}
	if out.Week.Summary.ActiveChores != 2 || out.Week.Summary.PerfectDays != 1 {
		t.Errorf("summary = %+v, want 2 active chores and 1 perfect day", out.Week.Summary)
	}
}

func TestRoutineFlow(t *testing.T) {
	_, ts := setupServer(t, 100)
	child := createChild(t, ts, "Ada")

	var rt model.Routine
	path := fmt.Sprintf("/api/children/%d/routines", child.ID)
	if code := call(t, ts, "POST", path, map[string]any{"name": "Bedtime", "category": "bedtime", "reward_amount": 5}, &rt); code != http.StatusCreated {
		t.Fatalf("create routine status = %d", code)
	}

	var steps []model.RoutineStep
	stepsPath := fmt.Sprintf("/api/routines/%d/steps", rt.ID)
	body := []map[string]string{{"title": "Brush teeth"}, {"title": "Pajamas"}, {"title": "Story"}}
	if code := call(t, ts, "PUT", stepsPath, body, &steps); code != http.StatusOK {
		t.Fatalf("replace steps status = %d", code)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}

	if code := call(t, ts, "POST", stepsPath+"/reorder", map[string]int{"from": 2, "to": 0}, &steps); code != http.StatusOK {
		t.Fatalf("reorder status = %d", code)
	}
	want := []string{"Story", "Brush teeth", "Pajamas"}
	for i, st := range steps {
		if st.Title != want[i] || st.OrderIndex != i {
			t.Errorf("step %d = (%q, %d), want (%q, %d)", i, st.Title, st.OrderIndex, want[i], i)
		}
	}

	if code := call(t, ts, "DELETE", stepsPath+"/1", nil, &steps); code != http.StatusOK {
		t.Fatalf("remove step status = %d", code)
	}
	if len(steps) != 2 || steps[1].Title != "Pajamas" || steps[1].OrderIndex != 1 {
		t.Errorf("steps after remove = %+v", steps)
	}

	if code := call(t, ts, "POST", stepsPath+"/reorder", map[string]int{"from": 0, "to": 5}, nil); code != http.StatusBadRequest {
		t.Errorf("out of range reorder status = %d, want %d", code, http.StatusBadRequest)
	}

	runsPath := fmt.Sprintf("/api/routines/%d/runs", rt.ID)
	var run tracker.RunResult
	if code := call(t, ts, "POST", runsPath, map[string]int{"steps_completed": 1, "steps_total": 2}, &run); code != http.StatusOK {
		t.Fatalf("partial run status = %d", code)
	}
	if run.Full || run.Completion != nil {
		t.Errorf("partial run = %+v, want nothing stored", run)
	}

	if code := call(t, ts, "POST", runsPath, map[string]int{"steps_completed": 2, "steps_total": 3}, nil); code != http.StatusBadRequest {
		t.Errorf("stale step count status = %d, want %d", code, http.StatusBadRequest)
	}

	if code := call(t, ts, "POST", runsPath, map[string]int{"steps_completed": 2, "steps_total": 2}, &run); code != http.StatusCreated {
		t.Fatalf("full run status = %d, want %d", code, http.StatusCreated)
	}
	if !run.Created || run.Completion.PointsEarned != 5 {
		t.Errorf("full run = %+v, want created with 5 points", run)
	}

	run = tracker.RunResult{}
	if code := call(t, ts, "POST", runsPath, map[string]int{"steps_completed": 2}, &run); code != http.StatusOK {
		t.Errorf("repeat run status = %d, want %d", code, http.StatusOK)
	}
	if run.Created {
		t.Error("second full run on the same day should not create a completion")
	}

	var today []struct {
		ID             int64 `json:"id"`
		StepCount      int   `json:"step_count"`
		CompletedToday bool  `json:"completed_today"`
	}
	if code := call(t, ts, "GET", path+"/today", nil, &today); code != http.StatusOK {
		t.Fatalf("today status = %d", code)
	}
	if len(today) != 1 || !today[0].CompletedToday || today[0].StepCount != 2 {
		t.Errorf("today = %+v, want one completed routine with 2 steps", today)
	}
}

func TestRoutineWithoutStepsCannotRun(t *testing.T) {
	_, ts := setupServer(t, 100)
	child := createChild(t, ts, "Ada")

	var rt model.Routine
	call(t, ts, "POST", fmt.Sprintf("/api/children/%d/routines", child.ID), map[string]any{"name": "Morning"}, &rt)

	path := fmt.Sprintf("/api/routines/%d/runs", rt.ID)
	if code := call(t, ts, "POST", path, map[string]int{"steps_completed": 0}, nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestBackupsDisabled(t *testing.T) {
	_, ts := setupServer(t, 100)

	var list struct {
		Status struct {
			State string `json:"state"`
		} `json:"status"`
		Backups []model.Backup `json:"backups"`
	}
	if code := call(t, ts, "GET", "/api/backups", nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if list.Status.State != "disabled" {
		t.Errorf("state = %q, want disabled", list.Status.State)
	}
	if code := call(t, ts, "POST", "/api/backups", nil, nil); code != http.StatusServiceUnavailable {
		t.Errorf("run backup status = %d, want %d", code, http.StatusServiceUnavailable)
	}
}

func TestPushSubscribe(t *testing.T) {
	_, ts := setupServer(t, 100)

	var sub model.PushSubscription
	body := map[string]string{"endpoint": "https://push.example/abc", "p256dh": "key", "auth": "secret", "device_name": "Kitchen"}
	if code := call(t, ts, "POST", "/api/push/subscribe", body, &sub); code != http.StatusCreated {
		t.Fatalf("subscribe status = %d", code)
	}
	if code := call(t, ts, "POST", "/api/push/subscribe", map[string]string{"endpoint": "x"}, nil); code != http.StatusBadRequest {
		t.Errorf("incomplete subscribe status = %d, want %d", code, http.StatusBadRequest)
	}

	var subs []model.PushSubscription
	call(t, ts, "GET", "/api/push/subscriptions", nil, &subs)
	if len(subs) != 1 || subs[0].DeviceName != "Kitchen" {
		t.Errorf("subscriptions = %+v, want one Kitchen device", subs)
	}

	if code := call(t, ts, "DELETE", fmt.Sprintf("/api/push/subscriptions/%d", sub.ID), nil, nil); code != http.StatusNoContent {
		t.Errorf("unsubscribe status = %d, want %d", code, http.StatusNoContent)
	}
}

func TestRateLimitMutatingRoutes(t *testing.T) {
	_, ts := setupServer(t, 2)

	for i := 0; i < 2; i++ {
		createChild(t, ts, fmt.Sprintf("Kid %d", i))
	}
	if code := call(t, ts, "POST", "/api/children", map[string]string{"name": "Extra"}, nil); code != http.StatusTooManyRequests {
		t.Errorf("third write status = %d, want %d", code, http.StatusTooManyRequests)
	}
	if code := call(t, ts, "GET", "/api/children", nil, nil); code != http.StatusOK {
		t.Errorf("read status = %d, want %d", code, http.StatusOK)
	}
}

func TestWebSocketReceivesChanges(t *testing.T) {
	srv, ts := setupServer(t, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := cws.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for srv.hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	child := createChild(t, ts, "Ada")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Entity != ws.EntityChild || msg.Action != "created" || msg.ID != child.ID {
		t.Errorf("message = %+v, want child created %d", msg, child.ID)
	}
}
