package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

var ErrUnsealToken = errors.New("stored token could not be unsealed")

// TokenSealer encrypts remote credentials at rest with NaCl secretbox. With
// no key configured tokens are stored as given.
type TokenSealer struct {
	key *[32]byte
}

func NewTokenSealer(key []byte) (*TokenSealer, error) {
	if len(key) == 0 {
		return &TokenSealer{}, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("token seal key must be 32 bytes, got %d", len(key))
	}
	var k [32]byte
	copy(k[:], key)
	return &TokenSealer{key: &k}, nil
}

func (s *TokenSealer) Seal(plain string) (string, error) {
	if s == nil || s.key == nil || plain == "" {
		return plain, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, s.key)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(box), nil
}

func (s *TokenSealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if s == nil || s.key == nil {
		return "", ErrUnsealToken
	}
	box, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(box) < 24+secretbox.Overhead {
		return "", ErrUnsealToken
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, s.key)
	if !ok {
		return "", ErrUnsealToken
	}
	return string(plain), nil
}
