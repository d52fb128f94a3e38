// Package gorr implements the chain adapter for the Gorrillazz native
// ledger. Accounts are base58-encoded ed25519 public keys; tokens and
// pools are created through the ledger node's HTTP API.
package gorr

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a well-formed ledger address:
// base58 text decoding to a 32-byte canonical ed25519 curve point.
func ValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return false
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return false
	}
	return true
}

// EncodeAddress encodes a 32-byte public key as a ledger address.
func EncodeAddress(pubKey []byte) string {
	return base58.Encode(pubKey)
}
