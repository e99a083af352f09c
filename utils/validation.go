// Package utils contains small shared helpers.
package utils

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsValidTxHash reports whether s is a 0x-prefixed 32-byte hex string.
func IsValidTxHash(s string) bool {
	return txHashPattern.MatchString(s)
}

// IsValidAddress reports whether s is a valid EVM address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}
