package service_test

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/queue"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

type fakeSender struct {
	failFor map[string]bool
	sent    []*messaging.Message
}

func (s *fakeSender) Send(_ context.Context, msg *messaging.Message) (string, error) {
	if s.failFor[msg.Token] {
		return "", errors.New("quota exceeded")
	}
	s.sent = append(s.sent, msg)
	return "projects/p/messages/1", nil
}

func TestPushSender_DeliversToEveryDevice(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	fisher := f.fishers[0]
	require.NoError(t, f.accounts.AddDeviceToken(ctx, fisher, "tok-a"))
	require.NoError(t, f.accounts.AddDeviceToken(ctx, fisher, "tok-b"))
	require.NoError(t, f.accounts.AddDeviceToken(ctx, fisher, "tok-c"))

	sender := &fakeSender{failFor: map[string]bool{"tok-b": true}}
	push := service.NewPushSender(sender, f.store)

	err := push.Deliver(ctx, queue.ReservationEvent{
		State: model.StateConfirmed,
		Notification: model.Notification{
			TargetRole: model.RoleFisher, TargetID: fisher.ID, ReservationID: 12,
			Title: "Reservation confirmed", Message: "See you", Type: model.NotifyReservationConfirmed,
		},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	msg := sender.sent[0]
	require.Equal(t, "Reservation confirmed", msg.Notification.Title)
	require.Equal(t, "12", msg.Data["reservation_id"])
	require.Equal(t, model.StateConfirmed, msg.Data["state"])
	require.Equal(t, "high", msg.Android.Priority)

	// a transient failure keeps the token
	tokens, err := f.store.Repos().Users.DeviceTokens(ctx, fisher.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
}
