package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"appraisal/server/internal/models"
)

const defaultAPIURL = "https://api.telegram.org"

// Config holds the bot credentials. The service is disabled when either is empty.
type Config struct {
	BotToken string
	ChatID   string
	APIURL   string
}

// Service sends operator notifications to a Telegram chat
type Service struct {
	logger *logrus.Logger
	client *http.Client
	config Config
}

func NewService(config Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config: config,
	}
}

// Enabled reports whether credentials are configured
func (s *Service) Enabled() bool {
	return s.config.BotToken != "" && s.config.ChatID != ""
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(ctx context.Context, message string) error {
	if !s.Enabled() {
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.config.APIURL, "/"), s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build Telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyRateSaveFailure tells the operator a rate preset was not persisted.
// The in-memory rates stay in effect, so the message asks for a manual retry.
func (s *Service) NotifyRateSaveFailure(status models.RateSaveStatus) {
	if !s.Enabled() {
		return
	}

	message := fmt.Sprintf(
		"<b>Rate preset not saved</b>\n\n"+
			"Organization: %s\n"+
			"Property type: %s\n"+
			"Error: %s\n\n"+
			"Session rates are still applied. Edit a rate again to retry the save.",
		html.EscapeString(status.OrganizationID),
		html.EscapeString(string(status.PropertyType)),
		html.EscapeString(status.Error),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.SendMessage(ctx, message); err != nil {
		s.logger.WithError(err).Error("Failed to send Telegram notification")
	}
}
