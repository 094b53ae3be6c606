package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/store"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// Service handles sending web push notifications.
type Service struct {
	cfg    Config
	subs   *store.PushStore
	client webpush.HTTPClient
	logger *slog.Logger
}

// NewService creates a new push service. Without VAPID keys it is disabled and
// every send is a no-op.
func NewService(cfg Config, subs *store.PushStore, logger *slog.Logger) *Service {
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:noreply@chorestar.app"
	}
	return &Service{
		cfg:    cfg,
		subs:   subs,
		client: http.DefaultClient,
		logger: logger,
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Send sends a push notification to a subscription.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// Broadcast sends payload to every subscription and drops the ones the push
// service reports as gone. It returns how many deliveries succeeded.
func (s *Service) Broadcast(payload Payload) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	subs, err := s.subs.List()
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	sent := 0
	for _, sub := range subs {
		if err := s.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Warn("remove expired subscription", "id", sub.ID, "error", err)
				}
				continue
			}
			s.logger.Warn("send push", "id", sub.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// NotifyRoutineCompleted tells every device that a child finished a routine.
// Called from the routine run handler, not from the scheduler.
func (s *Service) NotifyRoutineCompleted(child *model.Child, routine *model.Routine) {
	name := "Someone"
	if child != nil {
		name = child.Name
	}

	payload := Payload{
		Title: "Routine Complete",
		Body:  fmt.Sprintf("%s finished %s", name, routine.Name),
		URL:   "/routines",
		Tag:   fmt.Sprintf("routine-%d", routine.ID),
	}
	if _, err := s.Broadcast(payload); err != nil {
		s.logger.Error("routine completed notification", "routine_id", routine.ID, "error", err)
	}
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
