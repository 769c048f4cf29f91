// Package idgen generates opaque handle tokens.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// TokenBytes is the entropy per token. 16 bytes (128 bits) makes guessing a
// live token infeasible at any realistic handle count; possession of a token
// is the sole authorization to read or mutate its items.
const TokenBytes = 16

// tokenEncodedLen is ceil(128 / log2(36)), the base36 digits needed to
// represent 16 bytes without loss.
const tokenEncodedLen = 25

// EncodeBase36 converts a byte slice to a base36 string of the given length.
// Base36 (0-9, a-z) packs more entropy per character than hex while staying
// shell- and URL-safe.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var result strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// RandomToken returns a new unguessable token: prefix + "-" + 25 base36
// chars from 16 bytes of crypto/rand. Fails only if the system entropy
// source is unreadable.
func RandomToken(prefix string) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return prefix + "-" + EncodeBase36(buf, tokenEncodedLen), nil
}
