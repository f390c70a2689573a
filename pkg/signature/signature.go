package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
)

// Verification always runs over the untouched raw request body bytes.
// Hashing a re-serialized representation of the parsed payload diverges
// on key ordering and whitespace, so callers must capture the body
// before any JSON decoding happens.

// VerifyHMACSHA512 checks a hex-encoded HMAC-SHA512 signature header
// against the raw body. Returns false for any malformed input.
func VerifyHMACSHA512(rawBody []byte, header, secret string) bool {
	return verify(sha512.New, rawBody, header, secret)
}

// VerifyHMACSHA256 checks a hex-encoded HMAC-SHA256 signature header
// against the raw body. Returns false for any malformed input.
func VerifyHMACSHA256(rawBody []byte, header, secret string) bool {
	return verify(sha256.New, rawBody, header, secret)
}

func verify(algo func() hash.Hash, rawBody []byte, header, secret string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.ToLower(header))
	if err != nil {
		return false
	}
	mac := hmac.New(algo, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided)
}
