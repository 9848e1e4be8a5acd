package codec

import (
	"fmt"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// Cipher 按远端公钥加解密（由 KeyAgreement 实现）
type Cipher interface {
	Encrypt(plaintext, remotePublicKey []byte) ([]byte, error)
	Decrypt(ciphertext, remotePublicKey []byte) ([]byte, error)
}

// Codec 消息编解码器
type Codec struct {
	cipher Cipher
}

// New 创建编解码器
func New(c Cipher) *Codec {
	return &Codec{cipher: c}
}

// Encode 序列化并加密消息
func (c *Codec) Encode(m *types.Message, remotePublicKey []byte) ([]byte, error) {
	pt, err := Serialize(m)
	if err != nil {
		return nil, err
	}
	ct, err := c.cipher.Encrypt(pt, remotePublicKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt message %s: %w", m.ID, err)
	}
	return ct, nil
}

// Decode 解密并反序列化消息
func (c *Codec) Decode(ciphertext, remotePublicKey []byte) (*types.Message, error) {
	pt, err := c.cipher.Decrypt(ciphertext, remotePublicKey)
	if err != nil {
		return nil, err
	}
	return Deserialize(pt)
}
