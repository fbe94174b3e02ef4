// Package bot binds the menu controller to telebot: commands, callbacks and
// free text become menu events answered through the Telegram API.
package bot

import (
	"errors"
	"strings"

	tg "github.com/m3rciful/chainregbot/core/telegram"
	"github.com/m3rciful/chainregbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/chainregbot/core/telegram/helpers"
	"github.com/m3rciful/chainregbot/core/telegram/router"
	"github.com/m3rciful/chainregbot/internal/menu"
	"github.com/m3rciful/chainregbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

var errNoSender = errors.New("bot: update has no sender")

// Bot adapts telebot updates to the menu controller.
type Bot struct {
	ctrl  *menu.Controller
	store *session.Store
	// api overrides c.Bot() in tests.
	api API
}

// New builds a Bot.
func New(ctrl *menu.Controller, store *session.Store) *Bot {
	return &Bot{ctrl: ctrl, store: store}
}

// Register adds the commands and callback keys to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	if err := reg.RegisterCommand("/start", commands.Command{
		Handler:     b.start,
		Description: "Show the chain list",
	}); err != nil {
		return err
	}
	if err := reg.RegisterCommand("/reset", commands.Command{
		Handler:     b.start,
		Description: "Forget the selected chain and start over",
	}); err != nil {
		return err
	}

	keys := []string{
		strings.TrimSuffix(menu.SelectChainPrefix, ":"),
		strings.TrimSuffix(menu.PagePrefix, ":"),
	}
	for _, c := range menu.Categories() {
		keys = append(keys, string(c))
	}
	for _, k := range keys {
		if err := reg.RegisterCallback(k, b.action); err != nil {
			return err
		}
	}
	reg.SetTextFallback(b.text)
	return nil
}

// Routes returns every handler to mount on the bot.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(b, reg, router.TextOptions{})...)
	return routes
}

// Awaiting reports whether the user owes the bot an argument.
func (b *Bot) Awaiting(userID int64) bool {
	return b.store.Pending(userID) != session.PendingNone
}

// HandleInput takes free text while an argument is pending.
func (b *Bot) HandleInput(c tele.Context) error {
	return b.text(c)
}

func (b *Bot) start(c tele.Context) error {
	ev, err := b.event(c)
	if err != nil {
		return err
	}
	return b.ctrl.Start(tghelpers.BuildContext(c), ev)
}

func (b *Bot) action(c tele.Context) error {
	ev, err := b.event(c)
	if err != nil {
		return err
	}
	return b.ctrl.HandleAction(tghelpers.BuildContext(c), ev, c.Callback().Data)
}

func (b *Bot) text(c tele.Context) error {
	ev, err := b.event(c)
	if err != nil {
		return err
	}
	return b.ctrl.HandleText(tghelpers.BuildContext(c), ev, c.Text())
}

func (b *Bot) event(c tele.Context) (menu.Event, error) {
	user := c.Sender()
	if user == nil {
		return menu.Event{}, errNoSender
	}
	api := b.api
	if api == nil {
		api = c.Bot()
	}
	ev := menu.Event{UserID: user.ID, Reply: newResponder(c, api)}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		ref := session.MessageRef{ChatID: ev.ChatID, MessageID: cb.Message.ID}
		if cb.Message.Chat != nil {
			ref.ChatID = cb.Message.Chat.ID
		}
		if ev.ChatID == 0 {
			ev.ChatID = ref.ChatID
		}
		if ref.ChatID != 0 && ref.MessageID != 0 {
			ev.Origin = &ref
		}
	}
	if ev.ChatID == 0 {
		ev.ChatID = user.ID
	}
	return ev, nil
}
