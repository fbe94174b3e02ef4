package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/core/telegram/callbacks"
	"github.com/m3rciful/chainregbot/core/telegram/keyboard"
	"github.com/m3rciful/chainregbot/core/telegram/middleware"
	"github.com/m3rciful/chainregbot/internal/menu"
	"github.com/m3rciful/chainregbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// MaxMessageLen is Telegram's limit on message text.
const MaxMessageLen = 4096

// API is the part of the Telegram bot API the responder needs.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
}

// responder answers one update. It sends through the bot API rather than the
// context so that it gets the sent message back for tracking.
type responder struct {
	c   tele.Context
	api API
}

func newResponder(c tele.Context, api API) *responder {
	return &responder{c: c, api: api}
}

// Send implements menu.Responder.
func (r *responder) Send(_ context.Context, chatID int64, text string, opts menu.SendOptions) (session.MessageRef, error) {
	msg, err := r.api.Send(tele.ChatID(chatID), truncate(text), sendOptions(opts))
	if err != nil {
		return session.MessageRef{}, mapError(err)
	}
	middleware.CountMessage(r.c, !opts.Keyboard.Empty())
	ref := session.MessageRef{ChatID: chatID, MessageID: msg.ID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref, nil
}

// EditText implements menu.Responder.
func (r *responder) EditText(_ context.Context, ref session.MessageRef, text string, opts menu.SendOptions) error {
	if _, err := r.api.Edit(stored(ref), truncate(text), sendOptions(opts)); err != nil {
		return mapError(err)
	}
	middleware.CountMessage(r.c, !opts.Keyboard.Empty())
	return nil
}

// EditKeyboard implements menu.Responder.
func (r *responder) EditKeyboard(_ context.Context, ref session.MessageRef, kb menu.Keyboard) error {
	if _, err := r.api.EditReplyMarkup(stored(ref), markup(kb)); err != nil {
		return mapError(err)
	}
	middleware.CountMessage(r.c, true)
	return nil
}

// Answer implements menu.Responder. Outside a callback the notice is sent
// as a plain message instead.
func (r *responder) Answer(ctx context.Context, text string) error {
	if r.c.Callback() == nil {
		var chatID int64
		if chat := r.c.Chat(); chat != nil {
			chatID = chat.ID
		}
		_, err := r.Send(ctx, chatID, text, menu.SendOptions{})
		return err
	}
	callbacks.MarkAnswered(r.c)
	if err := r.c.Respond(&tele.CallbackResponse{Text: text}); err != nil {
		logger.Warn(ctx, "tg", "callback.answer.fail", slog.String("err", err.Error()))
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func stored(ref session.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

func sendOptions(opts menu.SendOptions) *tele.SendOptions {
	so := &tele.SendOptions{DisableWebPagePreview: opts.NoPreview}
	if opts.Markdown {
		so.ParseMode = tele.ModeMarkdown
	}
	if !opts.Keyboard.Empty() {
		so.ReplyMarkup = markup(opts.Keyboard)
	}
	return so
}

// markup converts a menu keyboard. Buttons carry no telebot unique so their
// data reaches OnCallback verbatim.
func markup(kb menu.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Text, Data: b.Data})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// mapError folds Telegram edit failures into the menu sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "message to edit not found"),
		strings.Contains(msg, "message can't be edited"):
		return fmt.Errorf("%w: %v", menu.ErrMessageGone, err)
	case strings.Contains(msg, "message is not modified"):
		return fmt.Errorf("%w: %v", menu.ErrNotModified, err)
	}
	return err
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxMessageLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxMessageLen-1]) + "…"
}

var _ menu.Responder = (*responder)(nil)
