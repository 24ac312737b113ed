package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/server/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSendMessage_Disabled(t *testing.T) {
	s := NewService(Config{}, testLogger())
	assert.False(t, s.Enabled())
	assert.NoError(t, s.SendMessage(context.Background(), "hello"))
}

func TestSendMessage_PostsToBotAPI(t *testing.T) {
	var path string
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewService(Config{BotToken: "token", ChatID: "42", APIURL: server.URL + "/"}, testLogger())
	require.NoError(t, s.SendMessage(context.Background(), "hello"))

	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "hello", body["text"])
	assert.Equal(t, "HTML", body["parse_mode"])
}

func TestSendMessage_APIErrors(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusUnauthorized, "invalid bot token"},
		{http.StatusForbidden, "bot was blocked"},
		{http.StatusNotFound, "bot not found"},
		{http.StatusBadRequest, "invalid chat ID"},
		{http.StatusBadGateway, "status 502"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			s := NewService(Config{BotToken: "token", ChatID: "42", APIURL: server.URL}, testLogger())
			err := s.SendMessage(context.Background(), "hello")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNotifyRateSaveFailure(t *testing.T) {
	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		text, _ = body["text"].(string)
	}))
	defer server.Close()

	s := NewService(Config{BotToken: "token", ChatID: "42", APIURL: server.URL}, testLogger())
	s.NotifyRateSaveFailure(models.RateSaveStatus{
		OrganizationID: "acme <west>",
		PropertyType:   models.Condo,
		Error:          "disk full",
	})

	assert.Contains(t, text, "acme &lt;west&gt;")
	assert.Contains(t, text, "condo")
	assert.Contains(t, text, "disk full")
}
