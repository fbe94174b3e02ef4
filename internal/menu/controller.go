// Package menu drives the chat menu: the chain list with paging, the
// per-chain action menu, and free-text queries. It talks to the chat only
// through a Responder and keeps all per-user state in a session.Store.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/internal/session"
)

// DefaultPageSize is the number of chains per list page.
const DefaultPageSize = 18

const component = "menu"

// User-facing texts.
const (
	MsgSelectChain      = "Select a chain:"
	MsgSelectAction     = "Select an action:"
	MsgNoChain          = "No chain selected. Please select a chain first."
	MsgNoChains         = "No chains available."
	MsgInvalidPage      = "Invalid page number."
	MsgNoNavigation     = "Unable to generate navigation buttons."
	MsgRequestFailed    = "An error occurred while processing your request."
	MsgUpToDate         = "The chain information is already up to date."
	MsgUnsupported      = "Unsupported action"
	MsgNoREST           = "Error: REST address not found for the selected chain."
	MsgIBCFailed        = "Error fetching IBC denom trace. Please try again."
	MsgIncentivesFailed = "Error fetching pool incentives data. Please try again."
	MsgInvalidPoolID    = "Invalid pool_id. Please send a number, e.g. pool/1."
	MsgEmptyDenom       = "Please send the denom hash after the prefix, e.g. ibc/27394FB0...."
)

// Catalog lists chain names.
type Catalog interface {
	List(ctx context.Context) []string
}

// Views renders chain data for each category. Text methods never fail: read
// errors come back as a printable notice.
type Views interface {
	ChainInfo(ctx context.Context, chain string) string
	PeerNodes(ctx context.Context, chain string) string
	Endpoints(ctx context.Context, chain string) string
	BlockExplorers(ctx context.Context, chain string) string
	RESTAddress(ctx context.Context, chain string) (string, error)
}

// Incentives fetches and formats pool incentive data.
type Incentives interface {
	Pool(ctx context.Context, poolID string) (string, error)
}

// Traces resolves IBC denom traces.
type Traces interface {
	Trace(ctx context.Context, chain, restAddr, hash string) (string, error)
}

// Deps wires a Controller.
type Deps struct {
	Store      *session.Store
	Catalog    Catalog
	Views      Views
	Incentives Incentives
	Traces     Traces
	PageSize   int
}

// Controller implements the menu state machine.
type Controller struct {
	store      *session.Store
	catalog    Catalog
	views      Views
	incentives Incentives
	traces     Traces
	pageSize   int
}

// New builds a Controller. A non-positive page size falls back to DefaultPageSize.
func New(d Deps) *Controller {
	size := d.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Controller{
		store:      d.Store,
		catalog:    d.Catalog,
		views:      d.Views,
		incentives: d.Incentives,
		traces:     d.Traces,
		pageSize:   size,
	}
}

// PageSize returns the configured page size.
func (c *Controller) PageSize() int { return c.pageSize }

// Start clears the user's session and shows the first page of chains.
func (c *Controller) Start(ctx context.Context, ev Event) error {
	c.store.Reset(ev.UserID)
	chains := c.catalog.List(ctx)
	kb := Paginate(chains, 0, c.pageSize, "")
	logger.Debug(ctx, component, "menu.start",
		slog.Int("count", len(chains)),
		slog.Int("pages", TotalPages(len(chains), c.pageSize)),
	)
	_, err := ev.Reply.Send(ctx, ev.ChatID, MsgSelectChain, SendOptions{Keyboard: kb})
	return err
}

// HandleAction dispatches raw callback data.
func (c *Controller) HandleAction(ctx context.Context, ev Event, data string) error {
	a := ParseAction(data)
	switch a.Kind {
	case ActionSelectChain:
		return c.SelectChain(ctx, ev, a.Chain)
	case ActionPage:
		return c.ChangePage(ctx, ev, a.Page)
	case ActionCategory:
		return c.ShowCategory(ctx, ev, a.Category)
	}
	logger.Debug(ctx, component, "menu.action.unknown", slog.String("payload", logger.SanitizeLimit(data, 64)))
	return ev.Reply.Answer(ctx, MsgUnsupported)
}

// SelectChain focuses chain and turns the originating message into the action menu.
func (c *Controller) SelectChain(ctx context.Context, ev Event, chain string) error {
	c.store.SelectChain(ev.UserID, chain, ev.Origin)
	logger.Info(ctx, component, "menu.select_chain", slog.String("chain", chain))

	opts := SendOptions{Keyboard: ActionMenu()}
	if ev.Origin == nil {
		return c.sendTracked(ctx, ev, MsgSelectAction, opts)
	}
	err := ev.Reply.EditText(ctx, *ev.Origin, MsgSelectAction, opts)
	switch {
	case err == nil, errors.Is(err, ErrNotModified):
		c.store.Track(ev.UserID, *ev.Origin, MsgSelectAction)
		return nil
	case errors.Is(err, ErrMessageGone):
		logger.Warn(ctx, component, "menu.edit.gone",
			slog.String("chain", chain),
			slog.String("operation", "select_chain"),
		)
		return c.sendTracked(ctx, ev, MsgSelectAction, opts)
	}
	return fmt.Errorf("select chain %s: %w", chain, err)
}

// ChangePage redraws the chain keyboard of the originating message at page.
func (c *Controller) ChangePage(ctx context.Context, ev Event, page int) error {
	chains := c.catalog.List(ctx)
	if len(chains) == 0 {
		return c.notice(ctx, ev, MsgNoChains)
	}
	total := TotalPages(len(chains), c.pageSize)
	if page < 0 || page >= total {
		logger.Debug(ctx, component, "menu.page.invalid",
			slog.Int("page", page),
			slog.Int("pages", total),
		)
		return c.notice(ctx, ev, MsgInvalidPage)
	}

	sess, _ := c.store.Get(ev.UserID)
	kb := Paginate(chains, page, c.pageSize, sess.Chain)
	if kb.Empty() {
		return c.notice(ctx, ev, MsgNoNavigation)
	}
	c.store.Touch(ev.UserID)

	if ev.Origin == nil {
		_, err := ev.Reply.Send(ctx, ev.ChatID, MsgSelectChain, SendOptions{Keyboard: kb})
		return err
	}
	err := ev.Reply.EditKeyboard(ctx, *ev.Origin, kb)
	switch {
	case err == nil, errors.Is(err, ErrNotModified):
		return nil
	case errors.Is(err, ErrMessageGone):
		_, err = ev.Reply.Send(ctx, ev.ChatID, MsgSelectChain, SendOptions{Keyboard: kb})
		return err
	}
	_ = c.notice(ctx, ev, MsgRequestFailed)
	return fmt.Errorf("change page %d: %w", page, err)
}

// ShowCategory renders one of the action-menu views for the selected chain.
func (c *Controller) ShowCategory(ctx context.Context, ev Event, cat Category) error {
	sess, ok := c.store.Get(ev.UserID)
	if !ok || !sess.HasChain() {
		return c.notice(ctx, ev, MsgNoChain)
	}
	chain := sess.Chain
	logger.Debug(ctx, component, "menu.category",
		slog.String("chain", chain),
		slog.String("category", string(cat)),
	)

	switch cat {
	case CategoryChainInfo:
		text := c.views.ChainInfo(ctx, chain)
		if sess.Target != nil && text == sess.Shown && (ev.Origin == nil || *ev.Origin == *sess.Target) {
			c.store.Touch(ev.UserID)
			return ev.Reply.Answer(ctx, MsgUpToDate)
		}
		return c.render(ctx, ev, sess, text, SendOptions{Markdown: true, NoPreview: true})
	case CategoryPeerNodes:
		return c.render(ctx, ev, sess, c.views.PeerNodes(ctx, chain), SendOptions{Markdown: true})
	case CategoryEndpoints:
		return c.render(ctx, ev, sess, c.views.Endpoints(ctx, chain), SendOptions{Markdown: true})
	case CategoryBlockExplorers:
		return c.render(ctx, ev, sess, c.views.BlockExplorers(ctx, chain), SendOptions{NoPreview: true})
	case CategoryIBCID:
		c.store.Touch(ev.UserID)
		return c.notice(ctx, ev, fmt.Sprintf("Enter IBC denom for %s:", chain))
	case CategoryPoolIncentives:
		if err := c.store.AwaitPoolID(ev.UserID); err != nil {
			return c.notice(ctx, ev, MsgNoChain)
		}
		return c.notice(ctx, ev, fmt.Sprintf("Enter pool_id for %s (AMM pool-type only):", chain))
	}
	return ev.Reply.Answer(ctx, MsgUnsupported)
}

// render shows text in the tracked message, or in a new tracked message
// when none is tracked or the tracked one is gone.
func (c *Controller) render(ctx context.Context, ev Event, sess session.Session, text string, opts SendOptions) error {
	opts.Keyboard = ActionMenu()
	if sess.Target == nil {
		return c.sendTracked(ctx, ev, text, opts)
	}
	err := ev.Reply.EditText(ctx, *sess.Target, text, opts)
	switch {
	case err == nil, errors.Is(err, ErrNotModified):
		c.store.Track(ev.UserID, *sess.Target, text)
		return nil
	case errors.Is(err, ErrMessageGone):
		logger.Warn(ctx, component, "menu.edit.gone",
			slog.String("chain", sess.Chain),
			slog.String("operation", "render"),
		)
		return c.sendTracked(ctx, ev, text, opts)
	}
	return fmt.Errorf("render %s: %w", sess.Chain, err)
}

func (c *Controller) sendTracked(ctx context.Context, ev Event, text string, opts SendOptions) error {
	ref, err := ev.Reply.Send(ctx, ev.ChatID, text, opts)
	if err != nil {
		return err
	}
	c.store.Track(ev.UserID, ref, text)
	return nil
}

func (c *Controller) notice(ctx context.Context, ev Event, text string) error {
	_, err := ev.Reply.Send(ctx, ev.ChatID, text, SendOptions{})
	return err
}

// HandleText dispatches free text. Unrecognized text gets no reply and
// leaves the session untouched.
func (c *Controller) HandleText(ctx context.Context, ev Event, text string) error {
	in := ParseInput(text, c.store.Pending(ev.UserID))
	switch in.Kind {
	case InputStart:
		return c.Start(ctx, ev)
	case InputIBC:
		return c.queryTrace(ctx, ev, in.Arg)
	case InputPool:
		return c.queryPool(ctx, ev, in.Arg)
	}
	logger.Debug(ctx, component, "menu.text.ignored", slog.String("payload", logger.SanitizeLimit(text, 64)))
	return nil
}

func (c *Controller) queryTrace(ctx context.Context, ev Event, hash string) error {
	sess, ok := c.store.Get(ev.UserID)
	if !ok || !sess.HasChain() {
		return c.notice(ctx, ev, MsgNoChain)
	}
	c.store.Touch(ev.UserID)
	if hash == "" {
		return c.notice(ctx, ev, MsgEmptyDenom)
	}
	rest, err := c.views.RESTAddress(ctx, sess.Chain)
	if err != nil {
		logger.Warn(ctx, component, "menu.ibc.no_rest",
			slog.String("chain", sess.Chain),
			slog.String("err", err.Error()),
		)
		return c.notice(ctx, ev, MsgNoREST)
	}
	out, err := c.traces.Trace(ctx, sess.Chain, rest, hash)
	if err != nil {
		logger.Warn(ctx, component, "menu.ibc.fail",
			slog.String("chain", sess.Chain),
			slog.String("hash", logger.SanitizeLimit(hash, 80)),
			slog.String("err", err.Error()),
		)
		return c.notice(ctx, ev, MsgIBCFailed)
	}
	return c.notice(ctx, ev, out)
}

func (c *Controller) queryPool(ctx context.Context, ev Event, poolID string) error {
	if !validPoolID(poolID) {
		return c.notice(ctx, ev, MsgInvalidPoolID)
	}
	// Without a chain there is nothing to mark pending.
	if err := c.store.AwaitPoolID(ev.UserID); err == nil {
		defer c.store.ClearPending(ev.UserID)
	}
	out, err := c.incentives.Pool(ctx, poolID)
	if err != nil {
		logger.Warn(ctx, component, "menu.pool.fail",
			slog.String("pool_id", poolID),
			slog.String("err", err.Error()),
		)
		return c.notice(ctx, ev, MsgIncentivesFailed)
	}
	return c.notice(ctx, ev, out)
}
