package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TransferType classifies how an asset crosses chains.
type TransferType string

const (
	Teleport TransferType = "Teleport"
	Reserve  TransferType = "Reserve"
)

// Amount is a scaled asset amount that renders as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount scales a raw integer balance by the asset's decimal precision.
func NewAmount(raw *big.Int, decimals int32) Amount {
	return Amount{Decimal: decimal.NewFromBigInt(raw, -decimals)}
}

// MarshalJSON renders the amount without quotes.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// ReceivedTransfer is an asset arriving from another chain.
type ReceivedTransfer struct {
	BlockNumber  uint64       `json:"block_number"`
	OriginChain  Chain        `json:"origin_chain"`
	Beneficiary  string       `json:"beneficiary"`
	Asset        string       `json:"asset"`
	Amount       Amount       `json:"amount"`
	TransferType TransferType `json:"transfer_type"`
}

// SentTransfer is an asset leaving for another chain.
type SentTransfer struct {
	BlockNumber      uint64       `json:"block_number"`
	DestinationChain Chain        `json:"destination_chain"`
	Sender           string       `json:"sender"`
	Beneficiary      string       `json:"beneficiary"`
	Asset            string       `json:"asset"`
	Amount           Amount       `json:"amount"`
	TransferType     TransferType `json:"transfer_type"`
}

// Transfer is one detected cross-chain transfer. Exactly one of the two
// fields is set; the populated field name is the outer JSON tag.
type Transfer struct {
	Received *ReceivedTransfer `json:"ReceivedTransfer,omitempty"`
	Sent     *SentTransfer     `json:"SentTransfer,omitempty"`
}

// NewReceived wraps a received transfer in the sum type.
func NewReceived(r ReceivedTransfer) Transfer {
	return Transfer{Received: &r}
}

// NewSent wraps a sent transfer in the sum type.
func NewSent(s SentTransfer) Transfer {
	return Transfer{Sent: &s}
}

// BlockNumber returns the block the transfer was detected in.
func (t Transfer) BlockNumber() uint64 {
	if t.Received != nil {
		return t.Received.BlockNumber
	}
	if t.Sent != nil {
		return t.Sent.BlockNumber
	}
	return 0
}
