// Package routing 实现 Router
//
// Router 通过周期性 Hello 维护可达目的地表，并为单播消息选择下一跳。
//
// # 调度
//
// 两个互相独立的周期：每 HelloInterval 向所有已连接设备广播
// Hello（System 消息）；每 CleanupInterval 清除
// now - updatedAt > RouteTimeout 的条目。读取路由前也会先清除
// 过期条目，过期路由永远不会被返回。
//
// # 路由学习
//
// 默认只记录一跳邻居：收到 Hello 即写入 {dest=sender, nextHop=sender,
// cost=1}。开启 DistanceVector 后 Hello 携带发送方路由表，
// 接收方按 cost+1 学习经由该邻居的多跳路由，上限 MaxCost。
//
// # 转发
//
// 收件人为其他设备的单播消息会被继续转发；Message.Route 记录
// 经过的设备，重复经过本机或超过 MaxHops 的消息被丢弃。
package routing
