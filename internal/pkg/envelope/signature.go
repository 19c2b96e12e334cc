package envelope

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultMaxAge = 5 * time.Minute

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Sign returns hex(HMAC-SHA256(secret, "{timestamp}\n{nonce}\n{body}")).
func Sign(timestamp int64, nonce, body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("\n"))
	mac.Write([]byte(nonce))
	mac.Write([]byte("\n"))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the timestamp window and the signature. Timestamps are ms
// epoch. A non-positive maxAge falls back to DefaultMaxAge.
func Verify(timestamp int64, nonce, body, signature, secret string, maxAge time.Duration, now time.Time) error {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	diff := now.UnixMilli() - timestamp
	if diff < 0 {
		diff = -diff
	}
	if diff > maxAge.Milliseconds() {
		return ErrSignatureExpired
	}

	expected := Sign(timestamp, nonce, body, secret)
	received := strings.ToLower(strings.TrimSpace(signature))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifySignature is Verify against the wall clock.
func VerifySignature(timestamp int64, nonce, body, signature, secret string, maxAge time.Duration) bool {
	return Verify(timestamp, nonce, body, signature, secret, maxAge, time.Now()) == nil
}

// NewNonce returns a random alphanumeric string of length n.
func NewNonce(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: read nonce: %v", ErrCrypto, err)
	}
	for i := range buf {
		buf[i] = nonceAlphabet[int(buf[i])%len(nonceAlphabet)]
	}
	return string(buf), nil
}

// Headers builds the signing headers for body at the given instant.
func Headers(body, secret string, now time.Time) (map[string]string, error) {
	nonce, err := NewNonce(32)
	if err != nil {
		return nil, err
	}
	ts := now.UnixMilli()
	return map[string]string{
		HeaderTimestamp: strconv.FormatInt(ts, 10),
		HeaderNonce:     nonce,
		HeaderSignature: Sign(ts, nonce, body, secret),
	}, nil
}
