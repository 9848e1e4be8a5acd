package keyagreement

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-blemesh/internal/core/security/x25519"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

func newPair(t *testing.T) (*KeyAgreement, *KeyAgreement) {
	t.Helper()
	a, err := New(x25519.New())
	require.NoError(t, err)
	b, err := New(x25519.New())
	require.NoError(t, err)
	return a, b
}

// TestKeyAgreement_HelloScenario A 用 kB 加密 "hello"，B 用 kA 解密
func TestKeyAgreement_HelloScenario(t *testing.T) {
	a, b := newPair(t)
	kA, kB := a.PublicKey(), b.PublicKey()

	require.NoError(t, a.Establish(kB))
	require.NoError(t, b.Establish(kA))

	ct, err := a.Encrypt([]byte("hello"), kB)
	require.NoError(t, err)

	pt, err := b.Decrypt(ct, kA)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))

	// 反方向
	ct, err = b.Encrypt([]byte("hi back"), kA)
	require.NoError(t, err)
	pt, err = a.Decrypt(ct, kB)
	require.NoError(t, err)
	assert.Equal(t, "hi back", string(pt))
}

// TestKeyAgreement_NoSession 未协商时加解密均返回 ErrNoSessionKey
func TestKeyAgreement_NoSession(t *testing.T) {
	a, b := newPair(t)

	_, err := a.Encrypt([]byte("x"), b.PublicKey())
	assert.ErrorIs(t, err, types.ErrNoSessionKey)

	_, err = a.Decrypt([]byte("x"), b.PublicKey())
	assert.ErrorIs(t, err, types.ErrNoSessionKey)
}

func TestKeyAgreement_MalformedKey(t *testing.T) {
	a, _ := newPair(t)

	assert.ErrorIs(t, a.Establish([]byte("bad")), types.ErrKeyAgreementFailure)
	assert.ErrorIs(t, a.Establish(nil), types.ErrKeyAgreementFailure)
	assert.Zero(t, a.Sessions())
}

func TestKeyAgreement_TamperedCiphertext(t *testing.T) {
	a, b := newPair(t)
	require.NoError(t, a.Establish(b.PublicKey()))
	require.NoError(t, b.Establish(a.PublicKey()))

	ct, err := a.Encrypt([]byte("hello"), b.PublicKey())
	require.NoError(t, err)
	ct[len(ct)/2] ^= 0x01

	_, err = b.Decrypt(ct, a.PublicKey())
	assert.ErrorIs(t, err, types.ErrDecryptionFailure)
}

// countingKeyPair 统计派生次数
type countingKeyPair struct {
	pkgif.KeyPair
	calls atomic.Int32
}

func (c *countingKeyPair) SharedSecret(remote []byte) ([]byte, error) {
	c.calls.Add(1)
	return c.KeyPair.SharedSecret(remote)
}

// TestKeyAgreement_DerivesOncePerKey 同一公钥只派生一次
func TestKeyAgreement_DerivesOncePerKey(t *testing.T) {
	suite := x25519.New()
	inner, err := suite.GenerateKeyPair()
	require.NoError(t, err)
	kp := &countingKeyPair{KeyPair: inner}
	a := NewWithKeyPair(suite, kp)

	_, b := newPair(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Establish(b.PublicKey()))
		}()
	}
	wg.Wait()
	require.NoError(t, a.Establish(b.PublicKey()))

	assert.Equal(t, int32(1), kp.calls.Load())
	assert.Equal(t, 1, a.Sessions())
}

func TestKeyAgreement_ForgetAndObserver(t *testing.T) {
	a, b := newPair(t)

	var last atomic.Int32
	a.SetObserver(func(n int) { last.Store(int32(n)) })

	require.NoError(t, a.Establish(b.PublicKey()))
	assert.Equal(t, int32(1), last.Load())
	assert.True(t, a.HasSession(b.PublicKey()))

	a.Forget(b.PublicKey())
	assert.Equal(t, int32(0), last.Load())
	assert.False(t, a.HasSession(b.PublicKey()))
}
