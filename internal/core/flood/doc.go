// Package flood 实现紧急广播的 TTL 泛洪
//
// 紧急消息不走单播路由：本地发出时向所有已连接设备各发一份
// 信封 {kind, payload, ttl, timestamp}；每一跳收到后若 ttl > 0，
// 以 ttl-1 原样转发给所有已连接设备。信封本身按跳经 MessageCodec
// 加密，转发时只改变 ttl。
//
// 本地保留最近 Capacity 条（新的在前），每次读取时按 ExpiresAt 过滤，
// 不做后台清理。
//
// 开启 Deduplicate 后按消息 ID 抑制重复投递和重复转发；
// 转发速率受令牌桶限制。
package flood
