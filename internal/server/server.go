package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorestar/internal/backup"
	"github.com/dukerupert/chorestar/internal/handler"
	"github.com/dukerupert/chorestar/internal/middleware"
	"github.com/dukerupert/chorestar/internal/push"
	"github.com/dukerupert/chorestar/internal/store"
	"github.com/dukerupert/chorestar/internal/tracker"
	ws "github.com/dukerupert/chorestar/internal/websocket"
)

// Config is what the server needs from the process configuration.
type Config struct {
	Location  *time.Location
	RateLimit int
	Backup    backup.Config
	Push      push.Config
	// ReminderHour is the local hour after which the daily chore reminder goes out.
	ReminderHour int
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	boards        *tracker.Registry
	childH        *handler.ChildHandler
	choreH        *handler.ChoreHandler
	weekH         *handler.WeekHandler
	settingsH     *handler.SettingsHandler
	routineH      *handler.RoutineHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	rateLimit     int
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Backup.Location == nil {
		cfg.Backup.Location = cfg.Location
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	childStore := store.NewChildStore(db)
	choreStore := store.NewChoreStore(db)
	settingsStore := store.NewSettingsStore(db)
	routineStore := store.NewRoutineStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	boards := tracker.NewRegistry(choreStore, settingsStore, hub, logger.With("component", "tracker"))

	// Backup status changes are pushed to connected clients.
	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: ws.EntityBackup,
			Action: string(s.State),
			Extra:  map[string]any{"status": s},
		})
	})

	pushLogger := logger.With("component", "push")
	pushSvc := push.NewService(cfg.Push, pushStore, pushLogger)
	pushSched := push.NewScheduler(pushSvc, pushStore, choreStore, cfg.ReminderHour, cfg.Location, pushLogger)

	httpLogger := logger.With("component", "http")

	return &Server{
		db:            db,
		hub:           hub,
		boards:        boards,
		childH:        handler.NewChildHandler(childStore, boards, hub, httpLogger),
		choreH:        handler.NewChoreHandler(choreStore, childStore, hub, httpLogger),
		weekH:         handler.NewWeekHandler(childStore, choreStore, settingsStore, boards, hub, cfg.Location, httpLogger),
		settingsH:     handler.NewSettingsHandler(settingsStore, hub, httpLogger),
		routineH:      handler.NewRoutineHandler(routineStore, childStore, hub, pushSvc, cfg.Location, httpLogger),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, httpLogger),
		backupH:       handler.NewBackupHandler(backupMgr, httpLogger),
		rateLimiter:   middleware.NewRateLimiter(),
		rateLimit:     cfg.RateLimit,
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the push notification scheduler.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// Close releases the live boards and their hub subscriptions.
func (s *Server) Close() {
	s.boards.Close()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	api := http.NewServeMux()
	s.registerAPIRoutes(api)

	limit := s.rateLimit
	if limit < 1 {
		limit = 120
	}
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, limit, time.Minute)
	mux.Handle("/api/", rl(api))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Children
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("PUT /api/children/sort", s.childH.UpdateSortOrder)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.HandleFunc("DELETE /api/children/{id}", s.childH.Delete)

	// Chores
	mux.HandleFunc("GET /api/children/{id}/chores", s.choreH.List)
	mux.HandleFunc("POST /api/children/{id}/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Weekly grid and rewards
	mux.HandleFunc("GET /api/children/{id}/week", s.weekH.Get)
	mux.HandleFunc("POST /api/children/{id}/week/toggle", s.weekH.Toggle)
	mux.HandleFunc("GET /api/children/{id}/history", s.weekH.History)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	// Routines
	mux.HandleFunc("GET /api/children/{id}/routines", s.routineH.List)
	mux.HandleFunc("POST /api/children/{id}/routines", s.routineH.Create)
	mux.HandleFunc("GET /api/children/{id}/routines/today", s.routineH.Today)
	mux.HandleFunc("GET /api/children/{id}/routines/runs", s.routineH.Runs)
	mux.HandleFunc("PUT /api/routines/{id}", s.routineH.Update)
	mux.HandleFunc("DELETE /api/routines/{id}", s.routineH.Delete)
	mux.HandleFunc("GET /api/routines/{id}/steps", s.routineH.Steps)
	mux.HandleFunc("PUT /api/routines/{id}/steps", s.routineH.ReplaceSteps)
	mux.HandleFunc("POST /api/routines/{id}/steps", s.routineH.AddStep)
	mux.HandleFunc("POST /api/routines/{id}/steps/reorder", s.routineH.ReorderSteps)
	mux.HandleFunc("DELETE /api/routines/{id}/steps/{index}", s.routineH.RemoveStep)
	mux.HandleFunc("POST /api/routines/{id}/runs", s.routineH.Run)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Create)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)
}
