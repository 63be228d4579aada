package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTelegramURL = "https://api.telegram.org"
	telegramTimeout    = 10 * time.Second
)

// TelegramNotifier posts the summary to a chat through the Bot API.
type TelegramNotifier struct {
	Token  string
	ChatID string

	// BaseURL overrides the Bot API endpoint.
	BaseURL string
	Client  *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		Token:  token,
		ChatID: chatID,
		Client: &http.Client{Timeout: telegramTimeout},
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (n *TelegramNotifier) Notify(ctx context.Context, summary string) error {
	if n.Token == "" || n.ChatID == "" {
		return fmt.Errorf("telegram: token and chat id are required")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    n.ChatID,
		Text:      summary,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	baseURL := n.BaseURL
	if baseURL == "" {
		baseURL = defaultTelegramURL
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: telegramTimeout}
	}

	ctx, cancel := context.WithTimeout(ctx, telegramTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/bot%s/sendMessage", baseURL, n.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned %s: %s", resp.Status, bytes.TrimSpace(detail))
	}
	return nil
}
