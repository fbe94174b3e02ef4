package registry

import (
	"context"
	"encoding/json"
	"path"
)

// Endpoint is one API address advertised by a provider.
type Endpoint struct {
	Address  string `json:"address"`
	Provider string `json:"provider"`
}

// Peer is a seed or persistent peer entry.
type Peer struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Provider string `json:"provider"`
}

// Explorer is a block explorer entry.
type Explorer struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// APIs groups endpoints by protocol.
type APIs struct {
	RPC         []Endpoint `json:"rpc"`
	REST        []Endpoint `json:"rest"`
	GRPC        []Endpoint `json:"grpc"`
	EVMHTTPJSON []Endpoint `json:"evm-http-jsonrpc"`
}

// Peers groups seed and persistent peers.
type Peers struct {
	Seeds           []Peer `json:"seeds"`
	PersistentPeers []Peer `json:"persistent_peers"`
}

// StakingToken is a denom accepted for staking.
type StakingToken struct {
	Denom string `json:"denom"`
}

// Staking holds staking parameters.
type Staking struct {
	StakingTokens []StakingToken `json:"staking_tokens"`
}

// Chain is the subset of chain.json the bot reads. Missing fields stay zero.
type Chain struct {
	ChainName    string      `json:"chain_name"`
	ChainID      string      `json:"chain_id"`
	Bech32Prefix string      `json:"bech32_prefix"`
	Slip44       json.Number `json:"slip44"`
	Staking      *Staking    `json:"staking"`
	APIs         APIs        `json:"apis"`
	Peers        Peers       `json:"peers"`
	Explorers    []Explorer  `json:"explorers"`
}

// DenomUnit is one unit of an asset with its decimal exponent.
type DenomUnit struct {
	Denom    string `json:"denom"`
	Exponent int    `json:"exponent"`
}

// Asset is one entry of assetlist.json.
type Asset struct {
	Base       string      `json:"base"`
	Symbol     string      `json:"symbol"`
	DenomUnits []DenomUnit `json:"denom_units"`
}

// AssetList is the subset of assetlist.json the bot reads.
type AssetList struct {
	ChainName string  `json:"chain_name"`
	Assets    []Asset `json:"assets"`
}

// LoadChain reads <name>/chain.json.
func LoadChain(ctx context.Context, src Source, name string) (*Chain, error) {
	var c Chain
	if err := src.ReadJSON(ctx, path.Join(name, "chain.json"), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadAssetList reads <name>/assetlist.json.
func LoadAssetList(ctx context.Context, src Source, name string) (*AssetList, error) {
	var a AssetList
	if err := src.ReadJSON(ctx, path.Join(name, "assetlist.json"), &a); err != nil {
		return nil, err
	}
	return &a, nil
}
