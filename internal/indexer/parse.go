package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseBlockHash converts a user-supplied hex block hash into its binary
// form. The 0x prefix is optional.
func ParseBlockHash(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Hash{}, fmt.Errorf("block hash is required")
	}
	if !strings.HasPrefix(input, "0x") {
		input = "0x" + input
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid block hash: %s", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid block hash length: %s", input)
	}
	return common.BytesToHash(data), nil
}
