// Package keyagreement 维护按远端公钥索引的会话密钥
//
// 每个不同的远端公钥最多派生一次共享密钥；会话密钥只存在内存中，
// 不持久化，也不轮换。
package keyagreement

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-blemesh/internal/util/logger"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

var log = logger.Logger("keyagreement")

// ErrNilSuite 未提供密码学套件
var ErrNilSuite = errors.New("keyagreement: nil crypto suite")

// SessionObserver 会话数量变化回调
type SessionObserver func(sessions int)

// KeyAgreement 会话密钥管理
type KeyAgreement struct {
	suite   pkgif.Suite
	keyPair pkgif.KeyPair

	mu       sync.RWMutex
	sessions map[string][]byte

	group    singleflight.Group
	observer SessionObserver
}

// New 创建 KeyAgreement 并生成本端密钥对
func New(suite pkgif.Suite) (*KeyAgreement, error) {
	if suite == nil {
		return nil, ErrNilSuite
	}
	kp, err := suite.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return NewWithKeyPair(suite, kp), nil
}

// NewWithKeyPair 使用已有密钥对创建 KeyAgreement
func NewWithKeyPair(suite pkgif.Suite, kp pkgif.KeyPair) *KeyAgreement {
	return &KeyAgreement{
		suite:    suite,
		keyPair:  kp,
		sessions: make(map[string][]byte),
	}
}

// SetObserver 设置会话数量变化回调
func (k *KeyAgreement) SetObserver(o SessionObserver) {
	k.mu.Lock()
	k.observer = o
	k.mu.Unlock()
}

// PublicKey 本端公钥
func (k *KeyAgreement) PublicKey() []byte {
	return k.keyPair.PublicKey()
}

// Suite 套件名称
func (k *KeyAgreement) Suite() string {
	return k.suite.Name()
}

// Establish 为远端公钥派生并缓存共享密钥
//
// 幂等；同一公钥的并发调用共享一次派生。
func (k *KeyAgreement) Establish(remotePublicKey []byte) error {
	if len(remotePublicKey) == 0 {
		return fmt.Errorf("%w: empty public key", types.ErrKeyAgreementFailure)
	}
	id := string(remotePublicKey)

	if k.HasSession(remotePublicKey) {
		return nil
	}

	_, err, _ := k.group.Do(id, func() (any, error) {
		if k.HasSession(remotePublicKey) {
			return nil, nil
		}

		secret, err := k.keyPair.SharedSecret(remotePublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrKeyAgreementFailure, err)
		}

		k.mu.Lock()
		k.sessions[id] = secret
		n, obs := len(k.sessions), k.observer
		k.mu.Unlock()

		if obs != nil {
			obs(n)
		}
		log.Debug("session established", "sessions", n)
		return nil, nil
	})
	return err
}

// HasSession 是否已为该公钥缓存会话密钥
func (k *KeyAgreement) HasSession(remotePublicKey []byte) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.sessions[string(remotePublicKey)]
	return ok
}

// Sessions 当前会话数量
func (k *KeyAgreement) Sessions() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.sessions)
}

// Forget 丢弃某个公钥的会话密钥，下次 Establish 时重新派生
func (k *KeyAgreement) Forget(remotePublicKey []byte) {
	k.mu.Lock()
	delete(k.sessions, string(remotePublicKey))
	n, obs := len(k.sessions), k.observer
	k.mu.Unlock()

	if obs != nil {
		obs(n)
	}
}

func (k *KeyAgreement) session(remotePublicKey []byte) ([]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.sessions[string(remotePublicKey)]
	return key, ok
}

// Encrypt 用与远端公钥对应的会话密钥加密
func (k *KeyAgreement) Encrypt(plaintext, remotePublicKey []byte) ([]byte, error) {
	key, ok := k.session(remotePublicKey)
	if !ok {
		return nil, types.ErrNoSessionKey
	}
	ct, err := k.suite.Seal(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return ct, nil
}

// Decrypt 用与远端公钥对应的会话密钥解密
func (k *KeyAgreement) Decrypt(ciphertext, remotePublicKey []byte) ([]byte, error) {
	key, ok := k.session(remotePublicKey)
	if !ok {
		return nil, types.ErrNoSessionKey
	}
	pt, err := k.suite.Open(key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecryptionFailure, err)
	}
	return slices.Clip(pt), nil
}
