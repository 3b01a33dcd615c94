package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/scrypt"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/metrics"
)

// scrypt work factors for tenant key derivation.
const (
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// minMasterKeyLen is the smallest accepted master key size.
const minMasterKeyLen = 32

// Local derives a 256-bit key per tenant from a process-wide master key,
// salted with the tenant id. Derived keys are cached; the cache is a pure
// optimization and a miss always re-derives the same key.
type Local struct {
	masterKey []byte

	mu   sync.RWMutex
	keys map[uuid.UUID][]byte
}

var _ Vault = (*Local)(nil)

// NewLocal constructs the local scheme. The master key must be at least 32 bytes.
func NewLocal(masterKey []byte) (*Local, error) {
	if len(masterKey) < minMasterKeyLen {
		return nil, fmt.Errorf("vault: master key must be at least %d bytes, got %d", minMasterKeyLen, len(masterKey))
	}
	return &Local{
		masterKey: append([]byte(nil), masterKey...),
		keys:      make(map[uuid.UUID][]byte),
	}, nil
}

// tenantKey returns the cached derived key for the tenant, deriving it on miss.
func (v *Local) tenantKey(tenantID uuid.UUID) ([]byte, error) {
	v.mu.RLock()
	key, ok := v.keys[tenantID]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	derived, err := scrypt.Key(v.masterKey, []byte(tenantID.String()), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("vault: derive tenant key: %w", err)
	}

	v.mu.Lock()
	v.keys[tenantID] = derived
	v.mu.Unlock()
	return derived, nil
}

// Encrypt seals plaintext under the tenant's derived key.
func (v *Local) Encrypt(_ context.Context, tenantID uuid.UUID, plaintext string) (string, error) {
	key, err := v.tenantKey(tenantID)
	if err != nil {
		return "", err
	}
	rec, err := seal(key, []byte(plaintext))
	if err != nil {
		metrics.VaultOps.WithLabelValues("local", "encrypt", "error").Inc()
		return "", fmt.Errorf("vault: encrypt: %w", err)
	}
	metrics.VaultOps.WithLabelValues("local", "encrypt", "ok").Inc()
	return rec.encode(), nil
}

// Decrypt opens a local-scheme ciphertext. Tampered ciphertext or a ciphertext
// produced for a different tenant fails authentication and never yields data.
func (v *Local) Decrypt(_ context.Context, tenantID uuid.UUID, ciphertext string) (string, error) {
	key, err := v.tenantKey(tenantID)
	if err != nil {
		return "", err
	}
	rec, err := decodeRecord(ciphertext)
	if err != nil {
		metrics.VaultOps.WithLabelValues("local", "decrypt", "error").Inc()
		return "", errors.Join(errs.ErrDecryptFailed, err)
	}
	plain, err := open(key, rec)
	if err != nil {
		metrics.VaultOps.WithLabelValues("local", "decrypt", "error").Inc()
		return "", fmt.Errorf("%w: %v", errs.ErrDecryptFailed, err)
	}
	metrics.VaultOps.WithLabelValues("local", "decrypt", "ok").Inc()
	return string(plain), nil
}

// RotateKey clears the cached derived key. The local scheme has no external
// rotation primitive, so the next call re-derives the same key.
func (v *Local) RotateKey(_ context.Context, tenantID uuid.UUID) error {
	v.mu.Lock()
	delete(v.keys, tenantID)
	v.mu.Unlock()
	return nil
}
