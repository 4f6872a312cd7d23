package vpn

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length in bytes of WireGuard private and public keys.
const KeySize = 32

// PrivateKey is a Curve25519 private key.
type PrivateKey [KeySize]byte

// PublicKey is a Curve25519 public key.
type PublicKey [KeySize]byte

// ParsePrivateKey decodes a base64 private key as written in wg-quick files.
func ParsePrivateKey(encoded string) (PrivateKey, error) {
	var key PrivateKey
	if err := decodeKey(encoded, key[:]); err != nil {
		return PrivateKey{}, fmt.Errorf("private key: %w", err)
	}
	return key, nil
}

// ParsePublicKey decodes a base64 public key as written in wg-quick files.
func ParsePublicKey(encoded string) (PublicKey, error) {
	var key PublicKey
	if err := decodeKey(encoded, key[:]); err != nil {
		return PublicKey{}, fmt.Errorf("public key: %w", err)
	}
	return key, nil
}

// PrivateKeyFromBytes copies raw into a PrivateKey. raw must be exactly KeySize bytes.
func PrivateKeyFromBytes(raw []byte) (PrivateKey, error) {
	var key PrivateKey
	if len(raw) != KeySize {
		return key, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// PublicKeyFromBytes copies raw into a PublicKey. raw must be exactly KeySize bytes.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	var key PublicKey
	if len(raw) != KeySize {
		return key, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// PublicKey derives the public half of k.
func (k PrivateKey) PublicKey() PublicKey {
	var pub PublicKey
	out, err := curve25519.X25519(k[:], curve25519.Basepoint)
	if err != nil {
		// X25519 only fails for low-order points, never for the base point.
		panic("vpn: deriving public key: " + err.Error())
	}
	copy(pub[:], out)
	return pub
}

// Bytes returns a copy of the raw key material.
func (k PrivateKey) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}

// String returns a redacted form so private keys never end up in logs.
func (k PrivateKey) String() string {
	return "(redacted)"
}

// Base64 returns the wg-quick encoding of the key.
func (k PrivateKey) Base64() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Bytes returns a copy of the raw key material.
func (k PublicKey) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}

func (k PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

func decodeKey(encoded string, dst []byte) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid base64: %w", err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("key must be %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
