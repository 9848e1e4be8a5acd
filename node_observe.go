package blemesh

import (
	"sync"

	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

// subscriptionBuffer 每个订阅的事件缓冲，溢出的事件被丢弃并计入指标
const subscriptionBuffer = 64

// ════════════════════════════════════════════════════════════════════════════
//                              事件订阅
// ════════════════════════════════════════════════════════════════════════════

// OnDeviceDiscovered 订阅设备发现，返回取消函数
func (n *Node) OnDeviceDiscovered(handler func(peer *Peer)) (cancel func()) {
	return subscribe(n, func(e types.EvtDeviceDiscovered) {
		handler(e.Peer)
	})
}

// OnConnectionStateChanged 订阅连接状态变化，返回取消函数
func (n *Node) OnConnectionStateChanged(handler func(change ConnectionStateChange)) (cancel func()) {
	return subscribe(n, handler)
}

// OnMessageReceived 订阅收到的非系统消息，返回取消函数
//
// 只投递目的地为本端或广播的消息；中继转发的消息不会出现在这里。
func (n *Node) OnMessageReceived(handler func(from string, msg *Message)) (cancel func()) {
	return subscribe(n, func(e types.EvtMessageReceived) {
		handler(e.From, e.Message)
	})
}

// OnEmergencyMessage 订阅紧急消息（包括本端发出的），返回取消函数
func (n *Node) OnEmergencyMessage(handler func(msg *EmergencyMessage, from string)) (cancel func()) {
	return subscribe(n, func(e types.EvtEmergencyMessage) {
		handler(e.Message, e.From)
	})
}

// OnRouteChanged 订阅路由表变化，返回取消函数
func (n *Node) OnRouteChanged(handler func(entry RouteEntry, removed bool)) (cancel func()) {
	return subscribe(n, func(e types.EvtRouteChanged) {
		handler(e.Entry, e.Removed)
	})
}

// subscribe 在事件总线上订阅 E，并在独立 goroutine 中按序回调
//
// 节点关闭或调用取消函数后停止回调。
func subscribe[E any](n *Node, handler func(E)) func() {
	sub, err := n.rt.Bus.Subscribe(new(E), pkgif.BufSize(subscriptionBuffer))
	if err != nil {
		logger.Warn("subscribe failed", "err", err)
		return func() {}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = sub.Close() })
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		for {
			select {
			case <-n.ctx.Done():
				return
			case raw, ok := <-sub.Out():
				if !ok {
					return
				}
				evt, ok := raw.(E)
				if !ok {
					continue
				}
				handler(evt)
			}
		}
	}()
	return cancel
}
