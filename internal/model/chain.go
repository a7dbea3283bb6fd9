package model

import (
	"encoding/json"
	"fmt"
)

// ChainKind discriminates the closed set of chains a transfer can reference.
type ChainKind uint8

const (
	ChainUnsupported ChainKind = iota
	ChainPolkadot
	ChainKusama
	ChainPolkadotAssetHub
	ChainPolkadotParachain
	ChainKusamaParachain
	ChainEvm
)

// Chain identifies a counterparty chain. The zero value is the unsupported
// chain. Values are comparable with ==.
type Chain struct {
	Kind ChainKind
	ID   uint64
}

// PolkadotRelay returns the Polkadot relay chain.
func PolkadotRelay() Chain { return Chain{Kind: ChainPolkadot} }

// KusamaRelay returns the Kusama relay chain.
func KusamaRelay() Chain { return Chain{Kind: ChainKusama} }

// PolkadotAssetHub returns the local chain.
func PolkadotAssetHub() Chain { return Chain{Kind: ChainPolkadotAssetHub} }

// PolkadotParachain returns a Polkadot parachain by id.
func PolkadotParachain(id uint64) Chain {
	return Chain{Kind: ChainPolkadotParachain, ID: id}
}

// KusamaParachain returns a Kusama parachain by id.
func KusamaParachain(id uint64) Chain {
	return Chain{Kind: ChainKusamaParachain, ID: id}
}

// Evm returns an EVM chain by chain id.
func Evm(chainID uint64) Chain { return Chain{Kind: ChainEvm, ID: chainID} }

// Supported reports whether the chain belongs to the output model.
func (c Chain) Supported() bool { return c.Kind != ChainUnsupported }

// String renders the chain for logs.
func (c Chain) String() string {
	switch c.Kind {
	case ChainPolkadot:
		return "Polkadot"
	case ChainKusama:
		return "Kusama"
	case ChainPolkadotAssetHub:
		return "PolkadotAssetHub"
	case ChainPolkadotParachain:
		return fmt.Sprintf("PolkadotParachain(%d)", c.ID)
	case ChainKusamaParachain:
		return fmt.Sprintf("KusamaParachain(%d)", c.ID)
	case ChainEvm:
		return fmt.Sprintf("Evm(%d)", c.ID)
	}
	return "Unsupported"
}

// MarshalJSON renders relay chains as bare tags and parameterized chains as
// single-key objects, e.g. "Polkadot" or {"PolkadotParachain": 1002}.
func (c Chain) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ChainPolkadot:
		return json.Marshal("Polkadot")
	case ChainKusama:
		return json.Marshal("Kusama")
	case ChainPolkadotAssetHub:
		return json.Marshal("PolkadotAssetHub")
	case ChainPolkadotParachain:
		return json.Marshal(map[string]uint64{"PolkadotParachain": c.ID})
	case ChainKusamaParachain:
		return json.Marshal(map[string]uint64{"KusamaParachain": c.ID})
	case ChainEvm:
		return json.Marshal(map[string]uint64{"Evm": c.ID})
	}
	return nil, fmt.Errorf("model: unsupported chain has no JSON form")
}

// UnmarshalJSON decodes either tag form.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "Polkadot":
			*c = PolkadotRelay()
		case "Kusama":
			*c = KusamaRelay()
		case "PolkadotAssetHub":
			*c = PolkadotAssetHub()
		default:
			return fmt.Errorf("model: unknown chain tag %q", s)
		}
		return nil
	}
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("model: malformed chain tag: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("model: chain tag must have exactly one key")
	}
	for k, v := range m {
		switch k {
		case "PolkadotParachain":
			*c = PolkadotParachain(v)
		case "KusamaParachain":
			*c = KusamaParachain(v)
		case "Evm":
			*c = Evm(v)
		default:
			return fmt.Errorf("model: unknown chain tag %q", k)
		}
	}
	return nil
}
