package orgs

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinInviteSecretLength is the shortest secret NewInviteCodec accepts
const MinInviteSecretLength = 32

var inviteInfo = []byte("tenantcore/invite-link/v1")

// InviteCodec turns organization ids into permanent invite tokens and back.
//
// A token is base58(nonce || XChaCha20-Poly1305(orgID)). Only holders of the
// secret can mint or read tokens; any other input decodes as invalid.
type InviteCodec struct {
	aead cipher.AEAD
}

// NewInviteCodec derives the sealing key from secret with HKDF-SHA256
func NewInviteCodec(secret []byte) (*InviteCodec, error) {
	if len(secret) < MinInviteSecretLength {
		return nil, fmt.Errorf("invite secret must be at least %d bytes", MinInviteSecretLength)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, inviteInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive invite key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite cipher: %w", err)
	}
	return &InviteCodec{aead: aead}, nil
}

// Encode seals orgID into a URL-safe token. Tokens for the same org differ
// on every call but all decode to the same id.
func (c *InviteCodec) Encode(orgID uuid.UUID) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(orgID)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, orgID[:], inviteInfo)
	return base58.Encode(sealed), nil
}

// Decode opens a token. ok is false for anything Encode did not produce with
// the same secret.
func (c *InviteCodec) Decode(token string) (orgID uuid.UUID, ok bool) {
	raw, err := base58.Decode(token)
	if err != nil || len(raw) != c.aead.NonceSize()+len(orgID)+c.aead.Overhead() {
		return uuid.Nil, false
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, inviteInfo)
	if err != nil {
		return uuid.Nil, false
	}

	orgID, err = uuid.FromBytes(plain)
	if err != nil {
		return uuid.Nil, false
	}
	return orgID, true
}

var errNoInviteCodec = errors.New("invite links are not configured")
