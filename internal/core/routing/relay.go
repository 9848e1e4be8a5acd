package routing

import (
	"context"
	"slices"

	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/pkg/types"
)

// handleRelay 转发收件人为其他设备的单播消息
//
// 发给本机或广播的消息不消费，交由注册表作为 EvtMessageReceived 发出。
func (r *Router) handleRelay(_ context.Context, from *types.Peer, msg *types.Message) bool {
	local := r.LocalID()
	if msg.Recipient == "" || msg.Recipient == local || msg.IsBroadcast() {
		return false
	}
	if msg.Visited(local) || len(msg.Route) >= r.cfg.MaxHops {
		r.metrics.Dropped(metrics.DropLoop)
		log.Debug("relay loop dropped", "id", msg.ID, "from", from.ID, "hops", len(msg.Route))
		return true
	}

	next, ok := r.ResolveNextHop(msg.Recipient)
	if !ok && r.peers.IsConnected(msg.Recipient) {
		next, ok = msg.Recipient, true
	}
	if !ok {
		r.metrics.Dropped(metrics.DropNoRoute)
		log.Debug("no route for relay", "id", msg.ID, "recipient", msg.Recipient)
		return true
	}
	if next == from.ID || slices.Contains(msg.Route, next) {
		r.metrics.Dropped(metrics.DropLoop)
		log.Debug("relay would loop back", "id", msg.ID, "nextHop", next)
		return true
	}

	fwd := msg.Clone()
	fwd.Route = append(fwd.Route, local)

	if r.ctx.Err() != nil {
		return true
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.peers.Send(r.ctx, next, fwd); err != nil {
			log.Debug("relay failed", "id", fwd.ID, "nextHop", next, "err", err)
			return
		}
		log.Debug("message relayed", "id", fwd.ID, "recipient", fwd.Recipient, "nextHop", next)
	}()
	return true
}
