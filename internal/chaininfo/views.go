// Package chaininfo renders registry entries into the text shown for each
// menu category. Read failures never escape: they are logged and turned into
// a notice the user can read.
package chaininfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/core/telegram/format"
	"github.com/m3rciful/chainregbot/internal/registry"
)

const (
	unknown              = "Unknown"
	maxEndpointsPerGroup = 5
	peerRule             = "---------------------"
	endpointRule         = "-----------"
	explorerRule         = "____________________"
)

// ErrNoREST is returned when a chain lists no REST endpoint.
var ErrNoREST = errors.New("chaininfo: no rest address")

// Views formats chain data read from a registry source.
type Views struct {
	src registry.Source
	log *slog.Logger
}

// New returns Views over src.
func New(src registry.Source, log *slog.Logger) *Views {
	if log == nil {
		log = logger.Registry
	}
	return &Views{src: src, log: log}
}

func (v *Views) fail(ctx context.Context, view, chain string, err error) {
	v.log.LogAttrs(ctx, slog.LevelWarn, "view failed",
		slog.String("event", "view.render"),
		slog.String("status", "fail"),
		slog.String("operation", view),
		slog.String("chain", chain),
		slog.String("err", err.Error()),
	)
}

// ChainInfo returns the Markdown summary of a chain.
func (v *Views) ChainInfo(ctx context.Context, chain string) string {
	c, err := registry.LoadChain(ctx, v.src, chain)
	if err != nil {
		v.fail(ctx, "chain_info", chain, err)
		return fmt.Sprintf("Error fetching data for %s. Please contact developer or open an issue on Github.", chain)
	}

	decimals := unknown
	if assets, err := registry.LoadAssetList(ctx, v.src, chain); err != nil {
		v.log.LogAttrs(ctx, slog.LevelDebug, "assetlist unavailable",
			slog.String("event", "view.render"),
			slog.String("chain", chain),
			slog.String("err", err.Error()),
		)
	} else if len(assets.Assets) > 0 && len(assets.Assets[0].DenomUnits) > 0 {
		units := assets.Assets[0].DenomUnits
		decimals = fmt.Sprint(units[len(units)-1].Exponent)
	}

	baseDenom := unknown
	if c.Staking != nil && len(c.Staking.StakingTokens) > 0 && c.Staking.StakingTokens[0].Denom != "" {
		baseDenom = c.Staking.StakingTokens[0].Denom
	}

	explorer := unknown
	if e, ok := PreferredExplorer(c.Explorers); ok {
		explorer = e.URL
	}

	lines := []string{
		field("Chain ID", c.ChainID),
		field("Chain Name", c.ChainName),
		field("RPC", firstAddress(c.APIs.RPC)),
		field("REST", firstAddress(c.APIs.REST)),
		field("Address Prefix", c.Bech32Prefix),
		field("Base Denom", baseDenom),
		field("Cointype", c.Slip44.String()),
		field("Decimals", decimals),
		field("Block Explorer", explorer),
	}
	return strings.Join(lines, "\n")
}

func field(name, value string) string {
	if value == "" {
		value = unknown
	}
	return fmt.Sprintf("%s: `%s`", name, value)
}

func firstAddress(eps []registry.Endpoint) string {
	for _, ep := range eps {
		if ep.Address != "" {
			return ep.Address
		}
	}
	return unknown
}

// Endpoints returns up to five addresses per API group, Markdown formatted.
func (v *Views) Endpoints(ctx context.Context, chain string) string {
	c, err := registry.LoadChain(ctx, v.src, chain)
	if err != nil {
		v.fail(ctx, "endpoints", chain, err)
		return fmt.Sprintf("Error fetching endpoints for %s. Please ensure the chain name is correct and try again.", chain)
	}

	var b strings.Builder
	writeEndpoints(&b, "RPC", c.APIs.RPC)
	writeEndpoints(&b, "API", c.APIs.REST)
	writeEndpoints(&b, "GRPC", c.APIs.GRPC)
	writeEndpoints(&b, "EVM-HTTP-JSONRPC", c.APIs.EVMHTTPJSON)
	if b.Len() == 0 {
		name, _ := format.EscapeMarkdown(chain, format.MarkdownV1)
		return fmt.Sprintf("No endpoints listed for %s.", name)
	}
	return format.EscapeOutsideCode(b.String())
}

func writeEndpoints(b *strings.Builder, title string, eps []registry.Endpoint) {
	if len(eps) == 0 {
		return
	}
	if len(eps) > maxEndpointsPerGroup {
		eps = eps[:maxEndpointsPerGroup]
	}
	b.WriteString(title + "\n" + endpointRule + "\n")
	for _, ep := range eps {
		provider := SanitizeProvider(ep.Provider)
		if provider == "" {
			provider = "unnamed"
		}
		fmt.Fprintf(b, "  %s: `%s`\n", provider, ep.Address)
	}
	b.WriteString("\n")
}

// PeerNodes lists seed and persistent peers, Markdown formatted.
func (v *Views) PeerNodes(ctx context.Context, chain string) string {
	c, err := registry.LoadChain(ctx, v.src, chain)
	if err != nil {
		v.fail(ctx, "peer_nodes", chain, err)
		return fmt.Sprintf("Error fetching peer nodes for %s. Please contact developer or open an issue on Github.", chain)
	}
	return formatPeers("Seed Nodes", c.Peers.Seeds) + formatPeers("Peer Nodes", c.Peers.PersistentPeers)
}

func formatPeers(title string, peers []registry.Peer) string {
	header := "*" + title + "*\n" + peerRule + "\n"
	if len(peers) == 0 {
		return header + "No data available\n\n"
	}
	items := make([]string, 0, len(peers))
	for _, p := range peers {
		provider := SanitizeProvider(p.Provider)
		if provider == "" {
			provider = "unnamed"
		}
		id := "id: unavailable"
		if p.ID != "" {
			id = "id: `" + p.ID + "`"
		}
		addr := "URL: unavailable"
		if p.Address != "" {
			addr = "URL: `" + p.Address + "`"
		}
		items = append(items, fmt.Sprintf("\n*%s*:\n%s\n %s\n %s", provider, peerRule, id, addr))
	}
	return header + strings.Join(items, "\n") + "\n\n"
}

// BlockExplorers lists every explorer. The result is plain text.
func (v *Views) BlockExplorers(ctx context.Context, chain string) string {
	c, err := registry.LoadChain(ctx, v.src, chain)
	if err != nil {
		v.fail(ctx, "block_explorers", chain, err)
		return fmt.Sprintf("Error fetching block explorers for %s. Please contact developer or open an issue on Github.", chain)
	}
	if len(c.Explorers) == 0 {
		return fmt.Sprintf("No block explorers listed for %s.", chain)
	}
	items := make([]string, 0, len(c.Explorers))
	for _, e := range c.Explorers {
		kind := strings.ReplaceAll(e.Kind, ".", "_")
		items = append(items, fmt.Sprintf("*%s*\n%s\n%s\n", kind, explorerRule, e.URL))
	}
	return strings.Join(items, "\n")
}

// RESTAddress returns the chain's first REST endpoint without trailing slashes.
func (v *Views) RESTAddress(ctx context.Context, chain string) (string, error) {
	c, err := registry.LoadChain(ctx, v.src, chain)
	if err != nil {
		return "", err
	}
	for _, ep := range c.APIs.REST {
		if addr := strings.TrimRight(strings.TrimSpace(ep.Address), "/"); addr != "" {
			return addr, nil
		}
	}
	return "", ErrNoREST
}
