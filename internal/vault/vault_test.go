package vault

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/beamhq/beam-core/internal/errs"
)

var (
	tenantA = uuid.Must(uuid.NewV4())
	tenantB = uuid.Must(uuid.NewV4())
)

func testMasterKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef") // 32 bytes
}

func TestNewLocal_RejectsShortMasterKey(t *testing.T) {
	t.Parallel()
	_, err := NewLocal([]byte("too short"))
	require.Error(t, err)
}

func TestLocal_RoundTrip(t *testing.T) {
	t.Parallel()
	v, err := NewLocal(testMasterKey())
	require.NoError(t, err)
	ctx := context.Background()

	ct, err := v.Encrypt(ctx, tenantA, "ghp_secret_token")
	require.NoError(t, err)
	require.NotContains(t, ct, "ghp_secret_token")

	pt, err := v.Decrypt(ctx, tenantA, ct)
	require.NoError(t, err)
	require.Equal(t, "ghp_secret_token", pt)
}

func TestLocal_CrossTenantDecryptFails(t *testing.T) {
	t.Parallel()
	v, err := NewLocal(testMasterKey())
	require.NoError(t, err)
	ctx := context.Background()

	ct, err := v.Encrypt(ctx, tenantA, "plaintext")
	require.NoError(t, err)

	_, err = v.Decrypt(ctx, tenantB, ct)
	require.ErrorIs(t, err, errs.ErrDecryptFailed)
}

func TestLocal_TamperDetected(t *testing.T) {
	t.Parallel()
	v, err := NewLocal(testMasterKey())
	require.NoError(t, err)
	ctx := context.Background()

	ct, err := v.Encrypt(ctx, tenantA, "plaintext")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = v.Decrypt(ctx, tenantA, tampered)
	require.ErrorIs(t, err, errs.ErrDecryptFailed)
}

func TestLocal_GarbageCiphertext(t *testing.T) {
	t.Parallel()
	v, err := NewLocal(testMasterKey())
	require.NoError(t, err)

	_, err = v.Decrypt(context.Background(), tenantA, "not base64!!!")
	require.ErrorIs(t, err, errs.ErrDecryptFailed)

	_, err = v.Decrypt(context.Background(), tenantA, base64.StdEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, errs.ErrDecryptFailed)
}

func TestLocal_RotateKeepsDecryptWorking(t *testing.T) {
	t.Parallel()
	v, err := NewLocal(testMasterKey())
	require.NoError(t, err)
	ctx := context.Background()

	ct, err := v.Encrypt(ctx, tenantA, "stable")
	require.NoError(t, err)
	require.NoError(t, v.RotateKey(ctx, tenantA))

	// The local scheme re-derives the same key after the cache is cleared.
	pt, err := v.Decrypt(ctx, tenantA, ct)
	require.NoError(t, err)
	require.Equal(t, "stable", pt)
}

// fakeKM is a deterministic key manager. Data keys are bound to the tenant by
// prefixing the encrypted form with the tenant id, so cross-tenant recovery
// fails the way a real KMS encryption context would.
type fakeKM struct {
	generateCalls int
	decryptCalls  int
}

func (f *fakeKM) pad(tenantID uuid.UUID) []byte {
	sum := sha256.Sum256(tenantID.Bytes())
	return sum[:]
}

func (f *fakeKM) GenerateDataKey(_ context.Context, tenantID uuid.UUID) ([]byte, []byte, error) {
	f.generateCalls++
	plain, err := randBytes(keyLen)
	if err != nil {
		return nil, nil, err
	}
	pad := f.pad(tenantID)
	encrypted := append([]byte(nil), tenantID.Bytes()...)
	for i, b := range plain {
		encrypted = append(encrypted, b^pad[i%len(pad)])
	}
	return plain, encrypted, nil
}

func (f *fakeKM) DecryptDataKey(_ context.Context, tenantID uuid.UUID, encrypted []byte) ([]byte, error) {
	f.decryptCalls++
	if len(encrypted) < 16 || uuid.FromBytesOrNil(encrypted[:16]) != tenantID {
		return nil, fmt.Errorf("data key not bound to tenant %s", tenantID)
	}
	pad := f.pad(tenantID)
	plain := make([]byte, 0, len(encrypted)-16)
	for i, b := range encrypted[16:] {
		plain = append(plain, b^pad[i%len(pad)])
	}
	return plain, nil
}

func TestEnvelope_RoundTrip(t *testing.T) {
	t.Parallel()
	km := &fakeKM{}
	v := NewEnvelope(km)
	ctx := context.Background()

	ct, err := v.Encrypt(ctx, tenantA, "refresh-token")
	require.NoError(t, err)

	pt, err := v.Decrypt(ctx, tenantA, ct)
	require.NoError(t, err)
	require.Equal(t, "refresh-token", pt)

	// Decrypt hit the cache, not the key manager.
	require.Equal(t, 1, km.generateCalls)
	require.Equal(t, 0, km.decryptCalls)
}

func TestEnvelope_DecryptWithoutCache(t *testing.T) {
	t.Parallel()
	km := &fakeKM{}
	ctx := context.Background()

	ct, err := NewEnvelope(km).Encrypt(ctx, tenantA, "portable")
	require.NoError(t, err)

	// A fresh instance recovers the data key from the embedded encrypted form.
	fresh := NewEnvelope(km)
	pt, err := fresh.Decrypt(ctx, tenantA, ct)
	require.NoError(t, err)
	require.Equal(t, "portable", pt)
	require.Equal(t, 1, km.decryptCalls)
}

func TestEnvelope_CrossTenantDecryptFails(t *testing.T) {
	t.Parallel()
	km := &fakeKM{}
	v := NewEnvelope(km)
	ctx := context.Background()

	ct, err := v.Encrypt(ctx, tenantA, "plaintext")
	require.NoError(t, err)

	_, err = v.Decrypt(ctx, tenantB, ct)
	require.ErrorIs(t, err, errs.ErrDecryptFailed)
}

func TestEnvelope_RotateMintsFreshDataKey(t *testing.T) {
	t.Parallel()
	km := &fakeKM{}
	v := NewEnvelope(km)
	ctx := context.Background()

	_, err := v.Encrypt(ctx, tenantA, "one")
	require.NoError(t, err)
	_, err = v.Encrypt(ctx, tenantA, "two")
	require.NoError(t, err)
	require.Equal(t, 1, km.generateCalls)

	require.NoError(t, v.RotateKey(ctx, tenantA))
	_, err = v.Encrypt(ctx, tenantA, "three")
	require.NoError(t, err)
	require.Equal(t, 2, km.generateCalls)
}

func TestEnvelope_TruncatedCiphertext(t *testing.T) {
	t.Parallel()
	v := NewEnvelope(&fakeKM{})
	// Length prefix claims more data-key bytes than present.
	bogus := base64.StdEncoding.EncodeToString([]byte{0xff, 0xff, 0x01, 0x02})
	_, err := v.Decrypt(context.Background(), tenantA, bogus)
	require.ErrorIs(t, err, errs.ErrDecryptFailed)
	require.False(t, errors.Is(err, errs.ErrNotFound))
}
