// Package x25519 实现 X25519 + HKDF-SHA256 + ChaCha20-Poly1305 套件
package x25519

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"slices"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dep2p/go-blemesh/internal/core/security"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Name 套件名称
const Name = "x25519-chacha20poly1305"

// KeySize X25519 公钥长度
const KeySize = 32

var curve = ecdh.X25519()

// Suite 套件实现
type Suite struct{}

var _ pkgif.Suite = Suite{}

// New 创建套件
func New() pkgif.Suite {
	return Suite{}
}

// Name 返回套件名称
func (Suite) Name() string {
	return Name
}

// GenerateKeyPair 生成 X25519 密钥对
func (Suite) GenerateKeyPair() (pkgif.KeyPair, error) {
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate x25519 key: %w", err)
	}
	return &keyPair{priv: priv}, nil
}

// Seal ChaCha20-Poly1305 加密
func (Suite) Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return security.Seal(aead, plaintext)
}

// Open ChaCha20-Poly1305 解密
func (Suite) Open(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return security.Open(aead, ciphertext)
}

type keyPair struct {
	priv *ecdh.PrivateKey
}

func (k *keyPair) PublicKey() []byte {
	return slices.Clone(k.priv.PublicKey().Bytes())
}

func (k *keyPair) SharedSecret(remote []byte) ([]byte, error) {
	if len(remote) != KeySize {
		return nil, fmt.Errorf("public key must be %d bytes (got %d)", KeySize, len(remote))
	}
	pub, err := curve.NewPublicKey(remote)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	secret, err := k.priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("x25519: %w", err)
	}
	return security.DeriveSessionKey(secret)
}
