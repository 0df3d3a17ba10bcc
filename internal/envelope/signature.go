package envelope

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature computes the request-level signature: SHA1 over the sorted
// concatenation of token, timestamp and nonce. This mirrors the
// platform's published algorithm, including its plain (non
// constant-time) string comparison on verify; the token is a shared,
// rotated secret, not key material.
func Signature(token, timestamp, nonce string) string {
	return sortedSHA1(token, timestamp, nonce)
}

func VerifySignature(token, signature, timestamp, nonce string) bool {
	return Signature(token, timestamp, nonce) == signature
}

// MsgSignature covers encrypted-mode messages: the encrypted payload
// joins the sorted set.
func MsgSignature(token, timestamp, nonce, encrypted string) string {
	return sortedSHA1(token, timestamp, nonce, encrypted)
}

func VerifyMsgSignature(token, timestamp, nonce, encrypted, msgSignature string) bool {
	return MsgSignature(token, timestamp, nonce, encrypted) == msgSignature
}

func sortedSHA1(parts ...string) string {
	sorted := make([]string, len(parts))
	copy(sorted, parts)
	sort.Strings(sorted)

	sum := sha1.Sum([]byte(strings.Join(sorted, "")))
	return hex.EncodeToString(sum[:])
}
