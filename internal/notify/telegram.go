package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Telegram sends through the bot API. Chat ids are payer ids for direct
// messages or the channel id for public announcements.
type Telegram struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewTelegram(baseURL, token string, logger zerolog.Logger) *Telegram {
	return &Telegram{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("%s: %s", method, out.Description)
	}
	return nil
}

func markup(keyboard Keyboard) map[string]any {
	if len(keyboard) == 0 {
		return nil
	}
	return map[string]any{"inline_keyboard": keyboard}
}

func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if m := markup(keyboard); m != nil {
		payload["reply_markup"] = m
	}
	return t.call(ctx, "sendMessage", payload)
}

func (t *Telegram) SendMedia(ctx context.Context, chatID int64, mediaRef, caption string, keyboard Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"audio":      mediaRef,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if m := markup(keyboard); m != nil {
		payload["reply_markup"] = m
	}
	return t.call(ctx, "sendAudio", payload)
}

func (t *Telegram) EditCaption(ctx context.Context, chatID int64, messageID int64, caption string, keyboard Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if m := markup(keyboard); m != nil {
		payload["reply_markup"] = m
	}
	return t.call(ctx, "editMessageCaption", payload)
}
