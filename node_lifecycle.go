package blemesh

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

// shutdownTimeout 关闭时等待组件停止的上限
const shutdownTimeout = 10 * time.Second

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期管理
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点
//
// 启动顺序：
//  1. 启动 fx 生命周期（注册表存活检查、路由 Hello/清理周期）
//  2. 启动传输事件循环
//  3. 按配置开始广播与扫描
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	switch n.state {
	case StateRunning:
		n.mu.Unlock()
		return ErrAlreadyStarted
	case StateStopped:
		n.mu.Unlock()
		return ErrNodeClosed
	}

	if err := n.rt.Start(ctx); err != nil {
		n.mu.Unlock()
		logger.Error("node start failed", "err", err)
		return fmt.Errorf("start failed: %w", err)
	}

	n.wg.Add(1)
	go n.eventLoop()
	n.state = StateRunning
	n.mu.Unlock()

	tc := n.config.Transport
	if tc.AdvertiseOnStart {
		if err := n.StartAdvertising(ctx); err != nil {
			return err
		}
	}
	if tc.ScanOnStart {
		if err := n.StartScanning(ctx); err != nil {
			return err
		}
	}
	logger.Info("node started", "id", n.LocalID())
	return nil
}

// Close 关闭节点
//
// 等待进行中的发送完成，停止所有组件并关闭传输。可重复调用。
func (n *Node) Close() error {
	n.mu.Lock()
	if n.state == StateStopped {
		n.mu.Unlock()
		return nil
	}
	n.state = StateStopped
	n.mu.Unlock()

	n.cancel()
	n.sends.Wait()
	// 事件循环与订阅泵退出后组件不再被调用
	n.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := multierr.Combine(
		n.rt.Stop(ctx),
		n.rt.Transport.Close(),
	)
	logger.Info("node closed", "id", n.LocalID())
	return err
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件循环
// ════════════════════════════════════════════════════════════════════════════

func (n *Node) eventLoop() {
	defer n.wg.Done()
	events := n.rt.Transport.Events()
	for {
		select {
		case <-n.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				logger.Debug("transport event stream closed")
				return
			}
			n.handleTransportEvent(ev)
		}
	}
}

func (n *Node) handleTransportEvent(ev types.TransportEvent) {
	reg := n.rt.Registry
	var err error
	switch e := ev.(type) {
	case types.PeerDiscovered:
		err = reg.OnDiscovered(e)
	case types.ConnectingStarted:
		err = reg.OnConnecting(e.PeerID)
	case types.ConnectionChanged:
		err = reg.OnConnectionChanged(e)
	case types.PublicKeyReceived:
		if err = reg.OnPublicKeyReceived(e.PeerID, e.Key); err == nil && reg.IsConnected(e.PeerID) {
			n.greet()
		}
	case types.DataReceived:
		reg.OnDataReceived(n.ctx, e.PeerID, e.Data)
	default:
		logger.Debug("unknown transport event", "type", fmt.Sprintf("%T", ev))
	}
	if err != nil {
		logger.Debug("transport event rejected", "type", fmt.Sprintf("%T", ev), "err", err)
	}
}

// greet 会话就绪后立即发送 Hello，不等下一个周期
func (n *Node) greet() {
	if n.ctx.Err() != nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.rt.Router.SendHello(n.ctx)
	}()
}
