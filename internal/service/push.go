package service

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/iliyamo/fishing-club-booking/internal/metrics"
	"github.com/iliyamo/fishing-club-booking/internal/queue"
)

// MessageSender is the part of the FCM client the push sender uses.
type MessageSender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// PushSender delivers reservation notifications to the recipient's
// registered devices through Firebase Cloud Messaging.
type PushSender struct {
	client MessageSender
	store  Storage
}

// NewFirebasePush builds a sender from a service account file.  An empty
// path returns nil; push is then disabled.
func NewFirebasePush(ctx context.Context, serviceAccountPath string, store Storage) (*PushSender, error) {
	if serviceAccountPath == "" {
		log.Warn().Msg("FIREBASE_SERVICE_ACCOUNT_PATH not set; push notifications disabled")
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	log.Info().Msg("firebase cloud messaging initialized")
	return NewPushSender(client, store), nil
}

func NewPushSender(client MessageSender, store Storage) *PushSender {
	return &PushSender{client: client, store: store}
}

// Deliver implements queue.Sink.  Tokens FCM reports as unregistered are
// removed.
func (p *PushSender) Deliver(ctx context.Context, ev queue.ReservationEvent) error {
	n := ev.Notification
	users := p.store.Repos().Users
	tokens, err := users.DeviceTokens(ctx, n.TargetID)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		msg := &messaging.Message{
			Notification: &messaging.Notification{Title: n.Title, Body: n.Message},
			Data: map[string]string{
				"type":           n.Type,
				"reservation_id": strconv.FormatUint(n.ReservationID, 10),
				"state":          ev.State,
			},
			Android: &messaging.AndroidConfig{Priority: "high"},
			Token:   token,
		}
		if _, err := p.client.Send(ctx, msg); err != nil {
			metrics.PushSent.WithLabelValues("error").Inc()
			if messaging.IsUnregistered(err) {
				_ = users.RemoveDeviceToken(ctx, n.TargetID, token)
				continue
			}
			log.Warn().Err(err).Uint64("user_id", n.TargetID).Msg("fcm send failed")
			continue
		}
		metrics.PushSent.WithLabelValues("ok").Inc()
	}
	return nil
}
