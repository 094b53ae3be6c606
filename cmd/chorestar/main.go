package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/chorestar/internal/backup"
	"github.com/dukerupert/chorestar/internal/config"
	"github.com/dukerupert/chorestar/internal/database"
	"github.com/dukerupert/chorestar/internal/logging"
	"github.com/dukerupert/chorestar/internal/push"
	"github.com/dukerupert/chorestar/internal/server"
)

const usage = `usage: chorestar [command]

commands:
  serve                 run the HTTP server (default)
  vapid                 print a new VAPID key pair for web push
  decrypt <in> <out>    decrypt a downloaded backup with CHORESTAR_BACKUP_PASSPHRASE
`

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "vapid":
		err = vapid()
	case "decrypt":
		if len(os.Args) != 4 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = decrypt(os.Args[2], os.Args[3])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("chorestar failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func vapid() error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Printf("CHORESTAR_VAPID_PUBLIC_KEY=%s\nCHORESTAR_VAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}

func decrypt(src, dst string) error {
	passphrase := os.Getenv("CHORESTAR_BACKUP_PASSPHRASE")
	if passphrase == "" {
		return backup.ErrNoPassphrase
	}
	if err := backup.DecryptFile(src, dst, passphrase); err != nil {
		return err
	}
	fmt.Printf("decrypted %s to %s\n", src, dst)
	return nil
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		Location:  loc,
		RateLimit: cfg.RateLimit,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  cfg.S3.Endpoint,
				Bucket:    cfg.S3.Bucket,
				Region:    cfg.S3.Region,
				AccessKey: cfg.S3.AccessKey,
				SecretKey: cfg.S3.SecretKey,
			},
			Passphrase:    cfg.BackupPassphrase,
			Hour:          cfg.BackupHour,
			RetentionDays: cfg.BackupRetentionDays,
			Location:      loc,
		},
		Push: push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.PushSubscriber,
		},
		ReminderHour: cfg.ReminderHour,
	}, logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	srv.PushScheduler().Start(ctx)
	srv.RateLimiter().StartCleanup(ctx, 5*time.Minute)

	errc := make(chan error, 1)
	go func() {
		logger.Info("chorestar listening", "addr", httpServer.Addr, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}

	srv.PushScheduler().Stop()
	srv.BackupManager().Stop()
	return nil
}
