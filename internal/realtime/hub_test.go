package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/queue"
)

func TestHubDeliversToRecipient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, 9, model.RoleFisher)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	// same id under the other role is a different user
	require.NoError(t, hub.Deliver(ctx, queue.ReservationEvent{
		Notification: model.Notification{TargetRole: model.RoleClub, TargetID: 9, Title: "not for you"},
	}))
	require.NoError(t, hub.Deliver(ctx, queue.ReservationEvent{
		Notification: model.Notification{TargetRole: model.RoleFisher, TargetID: 9, Title: "Reservation confirmed"},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Type string             `json:"type"`
		Data model.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "notification", msg.Type)
	require.Equal(t, "Reservation confirmed", msg.Data.Title)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.test"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.test")
	require.False(t, hub.upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "https://app.test")
	require.True(t, hub.upgrader.CheckOrigin(req))
}
