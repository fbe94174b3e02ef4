package menu

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/chainregbot/internal/session"
)

type sent struct {
	ChatID int64
	Text   string
	Opts   SendOptions
}

type edit struct {
	Ref  session.MessageRef
	Text string
}

type fakeResponder struct {
	mu        sync.Mutex
	nextID    int
	sends     []sent
	edits     []edit
	kbEdits   []session.MessageRef
	answers   []string
	editErr   error
	kbEditErr error
}

func (f *fakeResponder) Send(_ context.Context, chatID int64, text string, opts SendOptions) (session.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, sent{ChatID: chatID, Text: text, Opts: opts})
	return session.MessageRef{ChatID: chatID, MessageID: 1000 + f.nextID}, nil
}

func (f *fakeResponder) EditText(_ context.Context, ref session.MessageRef, text string, _ SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, edit{Ref: ref, Text: text})
	return nil
}

func (f *fakeResponder) EditKeyboard(_ context.Context, ref session.MessageRef, _ Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kbEditErr != nil {
		return f.kbEditErr
	}
	f.kbEdits = append(f.kbEdits, ref)
	return nil
}

func (f *fakeResponder) Answer(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeResponder) lastSend(t *testing.T) sent {
	t.Helper()
	require.NotEmpty(t, f.sends)
	return f.sends[len(f.sends)-1]
}

type staticCatalog []string

func (c staticCatalog) List(context.Context) []string { return append([]string(nil), c...) }

type fakeViews struct {
	info string
	rest string
	err  error
}

func (v *fakeViews) ChainInfo(_ context.Context, chain string) string {
	if v.info != "" {
		return v.info
	}
	return "Chain Name: `" + chain + "`"
}
func (v *fakeViews) PeerNodes(_ context.Context, chain string) string { return "peers of " + chain }
func (v *fakeViews) Endpoints(_ context.Context, chain string) string { return "endpoints of " + chain }
func (v *fakeViews) BlockExplorers(_ context.Context, chain string) string {
	return "explorers of " + chain
}
func (v *fakeViews) RESTAddress(context.Context, string) (string, error) { return v.rest, v.err }

type fakeIncentives struct {
	calls   []string
	pending []session.PendingInput
	store   *session.Store
	user    int64
	err     error
}

func (f *fakeIncentives) Pool(_ context.Context, poolID string) (string, error) {
	f.calls = append(f.calls, poolID)
	if f.store != nil {
		f.pending = append(f.pending, f.store.Pending(f.user))
	}
	if f.err != nil {
		return "", f.err
	}
	return "incentives for " + poolID, nil
}

type fakeTraces struct {
	calls [][3]string
	err   error
}

func (f *fakeTraces) Trace(_ context.Context, chain, rest, hash string) (string, error) {
	f.calls = append(f.calls, [3]string{chain, rest, hash})
	if f.err != nil {
		return "", f.err
	}
	return "IBC Denom Trace: \n{}", nil
}

type harness struct {
	ctrl   *Controller
	store  *session.Store
	out    *fakeResponder
	views  *fakeViews
	pools  *fakeIncentives
	traces *fakeTraces
}

const (
	testUser = int64(7)
	testChat = int64(70)
)

func newHarness(chains ...string) *harness {
	store := session.NewStore()
	h := &harness{
		store:  store,
		out:    &fakeResponder{},
		views:  &fakeViews{rest: "https://rest.acme.io"},
		pools:  &fakeIncentives{store: store, user: testUser},
		traces: &fakeTraces{},
	}
	h.ctrl = New(Deps{
		Store:      store,
		Catalog:    staticCatalog(chains),
		Views:      h.views,
		Incentives: h.pools,
		Traces:     h.traces,
		PageSize:   2,
	})
	return h
}

func (h *harness) callback(origin int) Event {
	return Event{
		UserID: testUser,
		ChatID: testChat,
		Origin: &session.MessageRef{ChatID: testChat, MessageID: origin},
		Reply:  h.out,
	}
}

func (h *harness) text() Event {
	return Event{UserID: testUser, ChatID: testChat, Reply: h.out}
}

func TestStartRendersFirstPage(t *testing.T) {
	t.Parallel()

	h := newHarness("acme", "beta", "gamma")
	h.store.SelectChain(testUser, "acme", nil)

	require.NoError(t, h.ctrl.Start(context.Background(), h.text()))

	sess, ok := h.store.Get(testUser)
	require.True(t, ok)
	assert.False(t, sess.HasChain(), "start clears the session")

	msg := h.out.lastSend(t)
	assert.Equal(t, MsgSelectChain, msg.Text)
	assert.Len(t, chainButtons(msg.Opts.Keyboard), 2)
	assert.Equal(t, "page:1", navButtons(msg.Opts.Keyboard)[0].Data)
}

func TestStartWithNoChains(t *testing.T) {
	t.Parallel()

	h := newHarness()
	require.NoError(t, h.ctrl.Start(context.Background(), h.text()))
	msg := h.out.lastSend(t)
	assert.Equal(t, MsgSelectChain, msg.Text)
	assert.True(t, msg.Opts.Keyboard.Empty())
}

func TestSelectChainThenPageKeepsChain(t *testing.T) {
	t.Parallel()

	h := newHarness("acme", "beta", "gamma")
	ctx := context.Background()

	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "select_chain:acme"))
	sess, _ := h.store.Get(testUser)
	assert.Equal(t, "acme", sess.Chain)
	assert.Equal(t, &session.MessageRef{ChatID: testChat, MessageID: 5}, sess.Target)
	require.Len(t, h.out.edits, 1)
	assert.Equal(t, MsgSelectAction, h.out.edits[0].Text)

	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "page:1"))
	sess, _ = h.store.Get(testUser)
	assert.Equal(t, "acme", sess.Chain)
	assert.Len(t, h.out.kbEdits, 1)
	assert.Empty(t, h.out.sends)
}

func TestSelectChainFallsBackWhenMessageGone(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.out.editErr = ErrMessageGone

	require.NoError(t, h.ctrl.HandleAction(context.Background(), h.callback(5), "select_chain:acme"))

	msg := h.out.lastSend(t)
	assert.Equal(t, MsgSelectAction, msg.Text)
	assert.Equal(t, ActionMenu(), msg.Opts.Keyboard)
	sess, _ := h.store.Get(testUser)
	assert.Equal(t, &session.MessageRef{ChatID: testChat, MessageID: 1001}, sess.Target)
}

func TestSelectChainOtherEditErrorPropagates(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	boom := errors.New("boom")
	h.out.editErr = boom
	err := h.ctrl.HandleAction(context.Background(), h.callback(5), "select_chain:acme")
	assert.ErrorIs(t, err, boom)
}

func TestChainInfoTwiceEditsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	ctx := context.Background()
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "select_chain:acme"))
	editsBefore := len(h.out.edits)

	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "chain_info"))
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "chain_info"))

	assert.Equal(t, 1, len(h.out.edits)-editsBefore)
	assert.Equal(t, []string{MsgUpToDate}, h.out.answers)
}

func TestChainInfoRedrawsAfterOtherView(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	ctx := context.Background()
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "select_chain:acme"))
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "chain_info"))
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "endpoints"))
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "chain_info"))

	assert.Len(t, h.out.edits, 4)
	assert.Empty(t, h.out.answers)
}

func TestChainInfoFromOlderMessageRedraws(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	ctx := context.Background()
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "select_chain:acme"))
	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "chain_info"))
	editsBefore := len(h.out.edits)

	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(3), "chain_info"))

	assert.Empty(t, h.out.answers)
	assert.Equal(t, 1, len(h.out.edits)-editsBefore)
}

func TestCategoryWithoutChain(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	require.NoError(t, h.ctrl.HandleAction(context.Background(), h.callback(5), "endpoints"))

	assert.Empty(t, h.out.edits)
	assert.Equal(t, MsgNoChain, h.out.lastSend(t).Text)
	_, ok := h.store.Get(testUser)
	assert.False(t, ok, "no state change")
}

func TestCategoryWithoutTargetSendsAndTracks(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.store.SelectChain(testUser, "acme", nil)

	require.NoError(t, h.ctrl.ShowCategory(context.Background(), h.text(), CategoryPeerNodes))

	msg := h.out.lastSend(t)
	assert.Equal(t, "peers of acme", msg.Text)
	assert.True(t, msg.Opts.Markdown)
	sess, _ := h.store.Get(testUser)
	require.NotNil(t, sess.Target)
	assert.Equal(t, 1001, sess.Target.MessageID)
	assert.Equal(t, "peers of acme", sess.Shown)
}

func TestCategoryEditGoneFallsBack(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.store.SelectChain(testUser, "acme", &session.MessageRef{ChatID: testChat, MessageID: 5})
	h.out.editErr = ErrMessageGone

	require.NoError(t, h.ctrl.ShowCategory(context.Background(), h.callback(5), CategoryBlockExplorers))

	msg := h.out.lastSend(t)
	assert.Equal(t, "explorers of acme", msg.Text)
	assert.True(t, msg.Opts.NoPreview)
	assert.False(t, msg.Opts.Markdown)
	sess, _ := h.store.Get(testUser)
	assert.Equal(t, 1001, sess.Target.MessageID)
}

func TestInvalidPages(t *testing.T) {
	t.Parallel()

	h := newHarness("a", "b", "c")
	ctx := context.Background()
	h.store.SelectChain(testUser, "a", nil)
	before, _ := h.store.Get(testUser)

	for _, data := range []string{"page:-1", "page:2", "page:x"} {
		require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), data))
		assert.Equal(t, MsgInvalidPage, h.out.lastSend(t).Text, data)
	}
	assert.Empty(t, h.out.kbEdits)
	after, _ := h.store.Get(testUser)
	assert.Equal(t, before, after)
}

func TestPageWithNoChains(t *testing.T) {
	t.Parallel()

	h := newHarness()
	require.NoError(t, h.ctrl.HandleAction(context.Background(), h.callback(5), "page:0"))
	assert.Equal(t, MsgNoChains, h.out.lastSend(t).Text)
	assert.Empty(t, h.out.kbEdits)
}

func TestPageNotModifiedIsSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness("a", "b", "c")
	h.out.kbEditErr = ErrNotModified
	require.NoError(t, h.ctrl.HandleAction(context.Background(), h.callback(5), "page:0"))
	assert.Empty(t, h.out.sends)
}

func TestPageHighlightsSelectedChain(t *testing.T) {
	t.Parallel()

	h := newHarness("a", "b", "c")
	rec := &keyboardRecorder{fakeResponder: h.out}
	h.store.SelectChain(testUser, "c", nil)
	ev := h.callback(5)
	ev.Reply = rec

	require.NoError(t, h.ctrl.ChangePage(context.Background(), ev, 1))
	require.Len(t, chainButtons(rec.last), 1)
	assert.Equal(t, HighlightMarker+"c", chainButtons(rec.last)[0].Text)
}

type keyboardRecorder struct {
	*fakeResponder
	last Keyboard
}

func (k *keyboardRecorder) EditKeyboard(ctx context.Context, ref session.MessageRef, kb Keyboard) error {
	k.last = kb
	return k.fakeResponder.EditKeyboard(ctx, ref, kb)
}

func TestUnknownActionAnswers(t *testing.T) {
	t.Parallel()

	h := newHarness("a")
	require.NoError(t, h.ctrl.HandleAction(context.Background(), h.callback(5), "bogus"))
	assert.Equal(t, []string{MsgUnsupported}, h.out.answers)
}

func TestPoolIncentivesPromptSetsPending(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	ctx := context.Background()
	h.store.SelectChain(testUser, "acme", nil)

	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "pool_incentives"))
	assert.Equal(t, "Enter pool_id for acme (AMM pool-type only):", h.out.lastSend(t).Text)
	assert.Equal(t, session.PendingPoolID, h.store.Pending(testUser))

	require.NoError(t, h.ctrl.HandleText(ctx, h.text(), "42"))
	assert.Equal(t, []string{"42"}, h.pools.calls)
	assert.Equal(t, "incentives for 42", h.out.lastSend(t).Text)
	assert.Equal(t, session.PendingNone, h.store.Pending(testUser))
}

func TestPoolTextWithChainFetches(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.store.SelectChain(testUser, "acme", nil)

	require.NoError(t, h.ctrl.HandleText(context.Background(), h.text(), "pool/7"))

	assert.Equal(t, []string{"7"}, h.pools.calls)
	assert.Equal(t, []session.PendingInput{session.PendingPoolID}, h.pools.pending)
	assert.Equal(t, session.PendingNone, h.store.Pending(testUser))
	sess, _ := h.store.Get(testUser)
	assert.Equal(t, "acme", sess.Chain)
}

func TestPoolTextWithoutChainFetches(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	require.NoError(t, h.ctrl.HandleText(context.Background(), h.text(), "pool/7"))

	assert.Equal(t, []string{"7"}, h.pools.calls)
	assert.Equal(t, []session.PendingInput{session.PendingNone}, h.pools.pending)
	assert.Equal(t, "incentives for 7", h.out.lastSend(t).Text)
	_, ok := h.store.Get(testUser)
	assert.False(t, ok, "no session is created for the lookup")
}

func TestPoolFetchErrorNotice(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.pools.err = errors.New("down")
	h.store.SelectChain(testUser, "acme", nil)

	require.NoError(t, h.ctrl.HandleText(context.Background(), h.text(), "pool/7"))
	assert.Equal(t, MsgIncentivesFailed, h.out.lastSend(t).Text)
	assert.Equal(t, session.PendingNone, h.store.Pending(testUser))
}

func TestInvalidPoolID(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	require.NoError(t, h.ctrl.HandleText(context.Background(), h.text(), "pool/abc"))
	assert.Equal(t, MsgInvalidPoolID, h.out.lastSend(t).Text)
	assert.Empty(t, h.pools.calls)
}

func TestUnrecognizedTextIsIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.store.SelectChain(testUser, "acme", nil)
	require.NoError(t, h.store.AwaitPoolID(testUser))
	before, _ := h.store.Get(testUser)

	require.NoError(t, h.ctrl.HandleText(context.Background(), h.text(), "foo/7"))

	assert.Empty(t, h.out.sends)
	assert.Empty(t, h.pools.calls)
	after, _ := h.store.Get(testUser)
	assert.Equal(t, before, after)
}

func TestIBCQuery(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	ctx := context.Background()
	h.store.SelectChain(testUser, "acme", nil)

	require.NoError(t, h.ctrl.HandleAction(ctx, h.callback(5), "ibc_id"))
	assert.Equal(t, "Enter IBC denom for acme:", h.out.lastSend(t).Text)
	assert.Equal(t, session.PendingNone, h.store.Pending(testUser))

	require.NoError(t, h.ctrl.HandleText(ctx, h.text(), "ibc/ABC"))
	assert.Equal(t, [][3]string{{"acme", "https://rest.acme.io", "ABC"}}, h.traces.calls)
	assert.Equal(t, "IBC Denom Trace: \n{}", h.out.lastSend(t).Text)
}

func TestIBCQueryErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	h := newHarness("acme")
	require.NoError(t, h.ctrl.HandleText(ctx, h.text(), "ibc/ABC"))
	assert.Equal(t, MsgNoChain, h.out.lastSend(t).Text)

	h = newHarness("acme")
	h.store.SelectChain(testUser, "acme", nil)
	h.views.err = errors.New("no rest")
	require.NoError(t, h.ctrl.HandleText(ctx, h.text(), "ibc/ABC"))
	assert.Equal(t, MsgNoREST, h.out.lastSend(t).Text)

	h = newHarness("acme")
	h.store.SelectChain(testUser, "acme", nil)
	h.traces.err = errors.New("503")
	require.NoError(t, h.ctrl.HandleText(ctx, h.text(), "ibc/ABC"))
	assert.Equal(t, MsgIBCFailed, h.out.lastSend(t).Text)
}

func TestTextStartResets(t *testing.T) {
	t.Parallel()

	h := newHarness("acme")
	h.store.SelectChain(testUser, "acme", nil)
	require.NoError(t, h.ctrl.HandleText(context.Background(), h.text(), "/start"))
	sess, _ := h.store.Get(testUser)
	assert.Empty(t, sess.Chain)
	assert.Equal(t, MsgSelectChain, h.out.lastSend(t).Text)
}
