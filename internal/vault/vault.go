// Package vault encrypts opaque secrets under tenant-scoped keys.
//
// Two interchangeable schemes are provided: Local derives per-tenant keys from
// a process-wide master key, Envelope wraps per-tenant data keys via an
// external key manager. Both emit authenticated AES-256-GCM ciphertext in a
// fixed-header wire format that only this package may produce or parse.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/gofrs/uuid/v5"
)

// Vault encrypts and decrypts strings for a tenant. Ciphertext produced for
// one tenant never decrypts for another; the schemes guarantee this by key
// construction, not by access control.
type Vault interface {
	// Encrypt seals plaintext under the tenant's key and returns the encoded ciphertext.
	Encrypt(ctx context.Context, tenantID uuid.UUID, plaintext string) (string, error)
	// Decrypt opens a ciphertext previously produced for the same tenant.
	Decrypt(ctx context.Context, tenantID uuid.UUID, ciphertext string) (string, error)
	// RotateKey invalidates any cached key material for the tenant.
	RotateKey(ctx context.Context, tenantID uuid.UUID) error
}

const keyLen = 32 // AES-256

// randBytes returns n cryptographically secure random bytes.
func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// newGCM builds an AES-256-GCM AEAD for the given key.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext with a fresh nonce and splits the GCM output into
// ciphertext and tag for the wire record.
func seal(key, plaintext []byte) (record, error) {
	aead, err := newGCM(key)
	if err != nil {
		return record{}, err
	}
	nonce, err := randBytes(nonceLen)
	if err != nil {
		return record{}, err
	}
	out := aead.Seal(nil, nonce, plaintext, nil)
	// GCM appends the tag to the ciphertext.
	ct, tag := out[:len(out)-tagLen], out[len(out)-tagLen:]
	return record{Nonce: nonce, Tag: tag, Ciphertext: ct}, nil
}

// open reassembles the GCM input from a wire record and decrypts it.
func open(key []byte, rec record) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	in := make([]byte, 0, len(rec.Ciphertext)+tagLen)
	in = append(in, rec.Ciphertext...)
	in = append(in, rec.Tag...)
	return aead.Open(nil, rec.Nonce, in, nil)
}
