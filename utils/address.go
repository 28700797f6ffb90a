// utils/address.go
package utils

import "strings"

// NormalizeAddress lowercases a wallet address. Every write and every read
// goes through this so the same wallet never splits into two identities by
// checksum casing.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
