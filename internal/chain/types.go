package chain

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Header is the part of a finalized chain header the indexer consumes.
// Substrate headers do not carry their own hash; resolve it by number.
type Header struct {
	ParentHash common.Hash    `json:"parentHash"`
	Number     hexutil.Uint64 `json:"number"`
}

// Block bundles everything the scanner needs from one finalized block.
type Block struct {
	Hash       common.Hash
	Number     uint64
	Extrinsics [][]byte
	Events     []byte
}

// RuntimeVersion identifies the runtime a node is executing.
type RuntimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
}

type signedBlock struct {
	Block struct {
		Header     Header          `json:"header"`
		Extrinsics []hexutil.Bytes `json:"extrinsics"`
	} `json:"block"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("chain: rpc error %d: %s", e.Code, e.Message)
}

type rpcResult struct {
	Result json.RawMessage
	Err    *rpcError
}

// rpcEnvelope covers both call responses and subscription notifications.
type rpcEnvelope struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}
