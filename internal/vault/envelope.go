package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/metrics"
)

// KeyManager is the external key-management boundary used by the envelope
// scheme. Implementations must bind generated keys to the tenant so that an
// encrypted data key of one tenant cannot be decrypted for another.
type KeyManager interface {
	// GenerateDataKey mints a fresh data key for the tenant and returns both
	// its plaintext and its KMS-encrypted form.
	GenerateDataKey(ctx context.Context, tenantID uuid.UUID) (plaintext, encrypted []byte, err error)
	// DecryptDataKey recovers the plaintext data key from its encrypted form.
	DecryptDataKey(ctx context.Context, tenantID uuid.UUID, encrypted []byte) ([]byte, error)
}

// dataKeyTTL bounds how long a generated data key is reused before a fresh
// one is minted.
const dataKeyTTL = time.Hour

type dataKey struct {
	plain     []byte
	encrypted []byte
	expiresAt time.Time
}

// Envelope encrypts with per-tenant data keys generated by a KeyManager. The
// KMS-encrypted form of the data key travels inside each ciphertext, so any
// instance can decrypt without re-calling GenerateDataKey.
type Envelope struct {
	km KeyManager

	mu   sync.Mutex
	keys map[uuid.UUID]dataKey
	now  func() time.Time
}

var _ Vault = (*Envelope)(nil)

// NewEnvelope constructs the envelope scheme around a key manager.
func NewEnvelope(km KeyManager) *Envelope {
	return &Envelope{
		km:   km,
		keys: make(map[uuid.UUID]dataKey),
		now:  time.Now,
	}
}

// currentDataKey returns a cached unexpired data key or mints a new one.
func (v *Envelope) currentDataKey(ctx context.Context, tenantID uuid.UUID) (dataKey, error) {
	v.mu.Lock()
	dk, ok := v.keys[tenantID]
	v.mu.Unlock()
	if ok && v.now().Before(dk.expiresAt) {
		return dk, nil
	}

	plain, encrypted, err := v.km.GenerateDataKey(ctx, tenantID)
	if err != nil {
		return dataKey{}, fmt.Errorf("vault: generate data key: %w", err)
	}
	dk = dataKey{plain: plain, encrypted: encrypted, expiresAt: v.now().Add(dataKeyTTL)}

	v.mu.Lock()
	v.keys[tenantID] = dk
	v.mu.Unlock()
	return dk, nil
}

// Encrypt seals plaintext under the tenant's current data key and embeds the
// encrypted data key in the wire record.
func (v *Envelope) Encrypt(ctx context.Context, tenantID uuid.UUID, plaintext string) (string, error) {
	dk, err := v.currentDataKey(ctx, tenantID)
	if err != nil {
		return "", err
	}
	rec, err := seal(dk.plain, []byte(plaintext))
	if err != nil {
		metrics.VaultOps.WithLabelValues("envelope", "encrypt", "error").Inc()
		return "", fmt.Errorf("vault: encrypt: %w", err)
	}
	metrics.VaultOps.WithLabelValues("envelope", "encrypt", "ok").Inc()
	return envelopeRecord{EncryptedDataKey: dk.encrypted, record: rec}.encode(), nil
}

// Decrypt recovers the data key from the record (via cache when the encrypted
// forms match, otherwise through the key manager) and opens the ciphertext.
func (v *Envelope) Decrypt(ctx context.Context, tenantID uuid.UUID, ciphertext string) (string, error) {
	rec, err := decodeEnvelopeRecord(ciphertext)
	if err != nil {
		metrics.VaultOps.WithLabelValues("envelope", "decrypt", "error").Inc()
		return "", errors.Join(errs.ErrDecryptFailed, err)
	}

	v.mu.Lock()
	cached, ok := v.keys[tenantID]
	v.mu.Unlock()

	var key []byte
	if ok && bytes.Equal(cached.encrypted, rec.EncryptedDataKey) {
		key = cached.plain
	} else {
		key, err = v.km.DecryptDataKey(ctx, tenantID, rec.EncryptedDataKey)
		if err != nil {
			metrics.VaultOps.WithLabelValues("envelope", "decrypt", "error").Inc()
			return "", fmt.Errorf("%w: recover data key: %v", errs.ErrDecryptFailed, err)
		}
	}

	plain, err := open(key, rec.record)
	if err != nil {
		metrics.VaultOps.WithLabelValues("envelope", "decrypt", "error").Inc()
		return "", fmt.Errorf("%w: %v", errs.ErrDecryptFailed, err)
	}
	metrics.VaultOps.WithLabelValues("envelope", "decrypt", "ok").Inc()
	return string(plain), nil
}

// RotateKey drops the cached data key, forcing the next encryption to mint a
// fresh one under the (possibly rotated) KMS key.
func (v *Envelope) RotateKey(_ context.Context, tenantID uuid.UUID) error {
	v.mu.Lock()
	delete(v.keys, tenantID)
	v.mu.Unlock()
	return nil
}
