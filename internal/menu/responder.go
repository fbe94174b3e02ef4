package menu

import (
	"context"
	"errors"

	"github.com/m3rciful/chainregbot/internal/session"
)

var (
	// ErrMessageGone means the message targeted by an edit no longer exists.
	ErrMessageGone = errors.New("menu: message to edit not found")
	// ErrNotModified means an edit would leave the message unchanged.
	ErrNotModified = errors.New("menu: message is not modified")
)

// SendOptions controls how text is rendered.
type SendOptions struct {
	Markdown  bool
	NoPreview bool
	Keyboard  Keyboard
}

// Responder is the outbound half of the chat transport.
type Responder interface {
	// Send posts a new message and returns its reference.
	Send(ctx context.Context, chatID int64, text string, opts SendOptions) (session.MessageRef, error)
	// EditText replaces the text (and keyboard) of an existing message.
	EditText(ctx context.Context, ref session.MessageRef, text string, opts SendOptions) error
	// EditKeyboard replaces only the inline keyboard of an existing message.
	EditKeyboard(ctx context.Context, ref session.MessageRef, kb Keyboard) error
	// Answer acknowledges the callback being handled with a short notice.
	Answer(ctx context.Context, text string) error
}

// Event is one inbound update addressed to the controller.
type Event struct {
	UserID int64
	ChatID int64
	// Origin is the message a callback button belonged to, nil for text.
	Origin *session.MessageRef
	Reply  Responder
}
