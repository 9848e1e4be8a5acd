// Package security 提供 KeyAgreement 使用的密码学套件
//
// 套件只负责原语（密钥对、ECDH、AEAD），会话缓存由 keyagreement 维护。
//
//   - x25519: X25519 + HKDF-SHA256 + ChaCha20-Poly1305（默认）
//   - p256:   ECDH P-256 + HKDF-SHA256 + AES-256-GCM
package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// SessionKeySize 派生的会话密钥长度
const SessionKeySize = 32

// sessionInfo HKDF info 标签
//
// 不区分方向，A→B 与 B→A 使用同一密钥。
var sessionInfo = []byte("blemesh-session-v1")

var (
	// ErrUnknownSuite 未知套件名称
	ErrUnknownSuite = errors.New("unknown crypto suite")
	// ErrCiphertextTooShort 密文短于 nonce
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrLowEntropySecret ECDH 结果全零
	ErrLowEntropySecret = errors.New("shared secret is all zeros")
)

// DeriveSessionKey 用 HKDF-SHA256 从 ECDH 结果派生会话密钥
func DeriveSessionKey(sharedSecret []byte) ([]byte, error) {
	if isZero(sharedSecret) {
		return nil, ErrLowEntropySecret
	}
	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, nil, sessionInfo), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// Seal 以随机 nonce 加密，输出 nonce || ciphertext
func Seal(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open 解析 nonce || ciphertext 并解密
func Open(aead cipher.AEAD, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	return aead.Open(nil, nonce, body, nil)
}

// Registry 套件名称到构造函数的映射
type Registry map[string]func() pkgif.Suite

// Lookup 按名称获取套件
func (r Registry) Lookup(name string) (pkgif.Suite, error) {
	ctor, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
	return ctor(), nil
}

func isZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}
