// Package p256 实现 ECDH P-256 + HKDF-SHA256 + AES-256-GCM 套件
//
// 公钥使用未压缩点编码（65 字节）。
package p256

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"slices"

	"github.com/dep2p/go-blemesh/internal/core/security"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Name 套件名称
const Name = "p256-aesgcm"

var curve = ecdh.P256()

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

// GenerateKeyPair 生成 P-256 密钥对
func (Suite) GenerateKeyPair() (pkgif.KeyPair, error) {
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate p256 key: %w", err)
	}
	return &keyPair{priv: priv}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal AES-256-GCM 加密
func (Suite) Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return security.Seal(aead, plaintext)
}

// Open AES-256-GCM 解密
func (Suite) Open(key, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
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
	pub, err := curve.NewPublicKey(remote)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	secret, err := k.priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("p256: %w", err)
	}
	return security.DeriveSessionKey(secret)
}
