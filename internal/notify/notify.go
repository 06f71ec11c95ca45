package notify

import "context"

// Button is a single inline keyboard button.
type Button struct {
	Text string `json:"text"`
	// URL opens a link; CallbackData posts back to the bot. Exactly one set.
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

// Notifier delivers chat messages to payers and the public channel. Every
// method is best-effort: failures are for the caller to log, never to treat
// as fatal to settlement.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error
	SendMedia(ctx context.Context, chatID int64, mediaRef, caption string, keyboard Keyboard) error
	EditCaption(ctx context.Context, chatID int64, messageID int64, caption string, keyboard Keyboard) error
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) SendMessage(context.Context, int64, string, Keyboard) error        { return nil }
func (Nop) SendMedia(context.Context, int64, string, string, Keyboard) error { return nil }
func (Nop) EditCaption(context.Context, int64, int64, string, Keyboard) error {
	return nil
}
