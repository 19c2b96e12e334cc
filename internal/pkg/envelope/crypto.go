package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	KeySize   = 32
	NonceSize = 16
	TagSize   = 16
)

// EncryptedBody is the wire shape of an encrypted request or response body.
type EncryptedBody struct {
	EncryptedData string `json:"encrypted_data"`
}

// Encrypt serializes data canonically and seals it with AES-256-GCM.
// The result is base64(nonce || tag || ciphertext).
func Encrypt(data interface{}, key string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	plaintext, err := CanonicalJSON(data)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: read nonce: %v", ErrCrypto, err)
	}

	// Seal returns ciphertext || tag.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, NonceSize+TagSize+len(ct))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a blob produced by Encrypt and returns the JSON plaintext.
func Decrypt(blob, key string) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrCrypto, err)
	}
	if len(raw) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrCrypto)
	}

	nonce := raw[:NonceSize]
	tag := raw[NonceSize : NonceSize+TagSize]
	ct := raw[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrCrypto)
	}

	return plaintext, nil
}

// DecryptInto decrypts blob and unmarshals the plaintext into v.
func DecryptInto(blob, key string, v interface{}) error {
	plaintext, err := Decrypt(blob, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: invalid plaintext json: %v", ErrCrypto, err)
	}
	return nil
}

// ValidateKey reports ErrConfig unless key is exactly KeySize bytes.
func ValidateKey(key string) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: aes key must be %d bytes, got %d", ErrConfig, KeySize, len(key))
	}
	return nil
}

func newAEAD(key string) (cipher.AEAD, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return aead, nil
}
