package envelope

import "errors"

var (
	// ErrConfig is returned when a key or secret is missing or malformed.
	ErrConfig = errors.New("envelope config error")
	// ErrCrypto is returned when a ciphertext cannot be opened.
	ErrCrypto = errors.New("envelope crypto error")

	ErrSignatureExpired  = errors.New("timestamp outside allowed window")
	ErrSignatureMismatch = errors.New("signature mismatch")
)
