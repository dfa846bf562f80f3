package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caribbeat/caribbeat/internal/models"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *[]byte) {
	t.Helper()
	var last []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		last = body
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestSendDiscord(t *testing.T) {
	srv, body := captureServer(t, http.StatusNoContent)
	sender := NewWebhookSender()

	ch := &models.NotificationChannel{ChannelType: "discord", WebhookURL: srv.URL}
	require.NoError(t, sender.Send(ch, "New drop", "Fresh soca just landed"))

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(*body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, "New drop", payload.Embeds[0].Title)
	assert.Equal(t, "Fresh soca just landed", payload.Embeds[0].Description)
}

func TestSendGeneric(t *testing.T) {
	srv, body := captureServer(t, http.StatusOK)
	sender := NewWebhookSender()

	ch := &models.NotificationChannel{ChannelType: "generic", WebhookURL: srv.URL}
	require.NoError(t, sender.Send(ch, "t", "m"))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(*body, &payload))
	assert.Equal(t, "caribbeat", payload["source"])
	assert.Equal(t, "t", payload["title"])
}

func TestSendUnknownType(t *testing.T) {
	sender := NewWebhookSender()
	err := sender.Send(&models.NotificationChannel{ChannelType: "pigeon"}, "t", "m")
	assert.Error(t, err)
}

func TestSendPropagatesHTTPError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	sender := NewWebhookSender()

	ch := &models.NotificationChannel{ChannelType: "slack", WebhookURL: srv.URL}
	assert.Error(t, sender.Send(ch, "t", "m"))
}

func TestSendTelegramRequiresConfig(t *testing.T) {
	sender := NewWebhookSender()
	err := sender.Send(&models.NotificationChannel{ChannelType: "telegram"}, "t", "m")
	assert.Error(t, err)
}
