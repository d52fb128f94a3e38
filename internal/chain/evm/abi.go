package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Function selectors (first 4 bytes of keccak256 of the signature).
const (
	// createToken(string,string,uint8,uint256,address,bool,bool,bool)
	selectorCreateToken = "f6e99be4"
	// createPool(address,uint256,uint256)
	selectorCreatePool = "5c9c18e2"
	// balanceOf(address)
	selectorBalanceOf = "70a08231"
	// decimals()
	selectorDecimals = "313ce567"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a well-formed EVM address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// abiWord left- or right-pads a hex payload to a 32-byte word.
func abiWordLeft(hexPayload string) string {
	return strings.Repeat("0", 64-len(hexPayload)) + hexPayload
}

// encodeUint encodes an unsigned integer as a 32-byte word. A value
// that does not fit uint256 is an encoding error, never a panic.
func encodeUint(v *big.Int) (string, error) {
	if v.Sign() < 0 || v.BitLen() > 256 {
		return "", fmt.Errorf("value %s does not fit uint256", v)
	}
	return abiWordLeft(v.Text(16)), nil
}

// encodeSmallUint encodes a non-negative int64 as a 32-byte word.
func encodeSmallUint(v int64) string {
	return abiWordLeft(big.NewInt(v).Text(16))
}

// encodeBool encodes a boolean as a 32-byte word.
func encodeBool(v bool) string {
	if v {
		return abiWordLeft("1")
	}
	return abiWordLeft("0")
}

// encodeAddress encodes a 0x address as a 32-byte word.
func encodeAddress(addr string) string {
	return abiWordLeft(strings.ToLower(strings.TrimPrefix(addr, "0x")))
}

// encodeStringTail encodes a dynamic string: length word followed by
// the UTF-8 bytes right-padded to a word boundary.
func encodeStringTail(s string) string {
	raw := hex.EncodeToString([]byte(s))
	padded := raw
	if rem := len(raw) % 64; rem != 0 {
		padded = raw + strings.Repeat("0", 64-rem)
	}
	return encodeSmallUint(int64(len(s))) + padded
}

// encodeCreateToken ABI-encodes the factory createToken call.
// Layout: head words for all eight arguments (offsets for the two
// dynamic strings), followed by the string tails.
func encodeCreateToken(name, symbol string, decimals int, supply *big.Int, owner string, mintable, burnable, pausable bool) (string, error) {
	if !ValidAddress(owner) {
		return "", fmt.Errorf("malformed owner address %q", owner)
	}
	if supply == nil || supply.Sign() <= 0 {
		return "", fmt.Errorf("supply must be positive")
	}
	supplyWord, err := encodeUint(supply)
	if err != nil {
		return "", fmt.Errorf("supply: %w", err)
	}

	const headWords = 8
	nameTail := encodeStringTail(name)
	symbolOffset := headWords*32 + len(nameTail)/2

	head := encodeSmallUint(headWords*32) + // offset of name
		encodeSmallUint(int64(symbolOffset)) + // offset of symbol
		encodeSmallUint(int64(decimals)) +
		supplyWord +
		encodeAddress(owner) +
		encodeBool(mintable) +
		encodeBool(burnable) +
		encodeBool(pausable)

	return "0x" + selectorCreateToken + head + nameTail + encodeStringTail(symbol), nil
}

// encodeCreatePool ABI-encodes the router createPool call.
func encodeCreatePool(token string, amount *big.Int, lockPeriodDays int) (string, error) {
	if !ValidAddress(token) {
		return "", fmt.Errorf("malformed token address %q", token)
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	if lockPeriodDays < 0 {
		return "", fmt.Errorf("lock period must be >= 0")
	}
	amountWord, err := encodeUint(amount)
	if err != nil {
		return "", fmt.Errorf("amount: %w", err)
	}

	return "0x" + selectorCreatePool +
		encodeAddress(token) +
		amountWord +
		encodeSmallUint(int64(lockPeriodDays)), nil
}

// encodeBalanceOf ABI-encodes an ERC-20 balanceOf call.
func encodeBalanceOf(holder string) string {
	return "0x" + selectorBalanceOf + encodeAddress(holder)
}

// encodeDecimals ABI-encodes an ERC-20 decimals call.
func encodeDecimals() string {
	return "0x" + selectorDecimals
}

// decodeQuantity parses a 0x hex quantity into a big.Int.
func decodeQuantity(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("malformed hex quantity %q", s)
	}
	return v, nil
}
