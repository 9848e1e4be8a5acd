package interfaces

// KeyPair 本端非对称密钥对
type KeyPair interface {
	// PublicKey 公钥的线上编码
	PublicKey() []byte

	// SharedSecret 与远端公钥派生对称会话密钥
	//
	// 双方用各自私钥和对方公钥派生出相同的结果。
	SharedSecret(remotePublicKey []byte) ([]byte, error)
}

// Suite 密码学套件
type Suite interface {
	// Name 套件名称
	Name() string

	// GenerateKeyPair 生成新的密钥对
	GenerateKeyPair() (KeyPair, error)

	// Seal 认证加密
	Seal(key, plaintext []byte) ([]byte, error)

	// Open 认证解密，完整性校验失败返回错误
	Open(key, ciphertext []byte) ([]byte, error)
}
