package ss58

import (
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Address format prefixes of the networks the indexer renders.
const (
	PolkadotPrefix  uint16 = 0
	SubstratePrefix uint16 = 42
)

var checksumContext = []byte("SS58PRE")

// Encode renders a 32-byte account id as an SS58 address under the given
// network prefix.
func Encode(pubkey []byte, prefix uint16) string {
	var payload []byte
	if prefix < 64 {
		payload = append(payload, byte(prefix))
	} else {
		ident := prefix & 0b0011_1111_1111_1111
		payload = append(payload,
			0b0100_0000|byte((ident&0b1111_1100)>>2),
			byte(ident>>8)|byte(ident&0b11)<<6,
		)
	}
	payload = append(payload, pubkey...)

	h, _ := blake2b.New512(nil)
	h.Write(checksumContext)
	h.Write(payload)
	sum := h.Sum(nil)

	payload = append(payload, sum[0], sum[1])
	return base58.Encode(payload)
}
