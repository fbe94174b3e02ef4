package menu

import (
	"strconv"
	"strings"

	"github.com/m3rciful/chainregbot/internal/session"
)

// Category is one of the info views offered by the action menu. Its value is
// the callback data of the corresponding button.
type Category string

const (
	CategoryChainInfo      Category = "chain_info"
	CategoryPeerNodes      Category = "peer_nodes"
	CategoryEndpoints      Category = "endpoints"
	CategoryBlockExplorers Category = "block_explorers"
	CategoryIBCID          Category = "ibc_id"
	CategoryPoolIncentives Category = "pool_incentives"
)

var categories = []Category{
	CategoryChainInfo,
	CategoryPeerNodes,
	CategoryEndpoints,
	CategoryBlockExplorers,
	CategoryIBCID,
	CategoryPoolIncentives,
}

// Categories returns every category in menu order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Label is the button text.
func (c Category) Label() string {
	switch c {
	case CategoryChainInfo:
		return "Chain Info"
	case CategoryPeerNodes:
		return "Peer Nodes"
	case CategoryEndpoints:
		return "Endpoints"
	case CategoryBlockExplorers:
		return "Block Explorers"
	case CategoryIBCID:
		return "IBC-ID"
	case CategoryPoolIncentives:
		return "Pool Incentives [non-sc]"
	}
	return string(c)
}

// ActionKind tags a parsed callback.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionSelectChain
	ActionPage
	ActionCategory
)

// Action is a parsed callback payload.
type Action struct {
	Kind     ActionKind
	Chain    string
	Page     int
	Category Category
}

// ParseAction decodes raw callback data. A page number that does not parse
// becomes -1 so the range check rejects it.
func ParseAction(data string) Action {
	switch {
	case strings.HasPrefix(data, SelectChainPrefix):
		chain := strings.TrimPrefix(data, SelectChainPrefix)
		if chain == "" {
			return Action{Kind: ActionUnknown}
		}
		return Action{Kind: ActionSelectChain, Chain: chain}
	case strings.HasPrefix(data, PagePrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(data, PagePrefix))
		if err != nil {
			n = -1
		}
		return Action{Kind: ActionPage, Page: n}
	}
	for _, c := range categories {
		if data == string(c) {
			return Action{Kind: ActionCategory, Category: c}
		}
	}
	return Action{Kind: ActionUnknown}
}

// InputKind tags parsed free text.
type InputKind int

const (
	InputUnrecognized InputKind = iota
	InputStart
	InputIBC
	InputPool
)

// Input is parsed free text.
type Input struct {
	Kind InputKind
	Arg  string
}

const (
	ibcPrefix  = "ibc/"
	poolPrefix = "pool/"
)

// ParseInput classifies trimmed free text. While a pool id is pending, a bare
// number is taken as the pool id.
func ParseInput(text string, pending session.PendingInput) Input {
	text = strings.TrimSpace(text)
	switch {
	case text == "/start" || text == "/reset":
		return Input{Kind: InputStart}
	case strings.HasPrefix(text, ibcPrefix):
		return Input{Kind: InputIBC, Arg: strings.TrimPrefix(text, ibcPrefix)}
	case strings.HasPrefix(text, poolPrefix):
		return Input{Kind: InputPool, Arg: strings.TrimPrefix(text, poolPrefix)}
	case pending == session.PendingPoolID && validPoolID(text):
		return Input{Kind: InputPool, Arg: text}
	}
	return Input{Kind: InputUnrecognized}
}

func validPoolID(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
