package interfaces

import (
	"context"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// Transport 物理传输协作方
//
// 所有调用的超时由实现负责，核心层不会无限期阻塞在传输调用上。
type Transport interface {
	// LocalID 本端设备 ID（与对端看到的 PeerID 一致）
	LocalID() string

	// Advertise 开始广播，并在只读通道上发布本端公钥
	Advertise(ctx context.Context, publicKey []byte) error

	// Scan 开始扫描附近设备
	Scan(ctx context.Context) error

	// Connect 连接到指定设备
	Connect(ctx context.Context, peerID string) error

	// Write 通过写通道向对端发送密文
	Write(ctx context.Context, peerID string, data []byte) error

	// Events 传输层事件流，Close 后关闭
	Events() <-chan types.TransportEvent

	// Close 关闭传输
	Close() error
}
