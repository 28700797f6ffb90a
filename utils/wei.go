// utils/wei.go
package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// HexToDecimalString converts a 0x-prefixed hex wei value (as returned by
// eth_getBalance) to its decimal string form.
func HexToDecimalString(hexWei string) (string, error) {
	n, err := parseHexBig(hexWei)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// ParseHexInt64 decodes a 0x-prefixed hex quantity (block number, gas used).
func ParseHexInt64(hex string) (int64, error) {
	n, err := parseHexBig(hex)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("hex quantity %q overflows int64", hex)
	}
	return n.Int64(), nil
}

// WeiToToken renders a decimal wei string as a token amount (÷10^18) with
// 4 decimal places, for display.
func WeiToToken(decimalWei string) (string, error) {
	wei, ok := new(big.Int).SetString(decimalWei, 10)
	if !ok {
		return "", fmt.Errorf("invalid wei value %q", decimalWei)
	}
	r := new(big.Rat).SetFrac(wei, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return r.FloatString(4), nil
}

// TokenToWei converts a decimal token amount string (e.g. "0.1") to wei.
// Used to compare a wallet balance against a required payment amount.
func TokenToWei(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid token amount %q", amount)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	if !r.IsInt() {
		// sub-wei precision gets truncated
		return new(big.Int).Quo(r.Num(), r.Denom()), nil
	}
	return r.Num(), nil
}

func parseHexBig(hex string) (*big.Int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "0x")
	if s == "" {
		return nil, fmt.Errorf("empty hex quantity")
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", hex)
	}
	return n, nil
}
