// Package metrics 提供监控指标收集
//
// 两类指标：
//
//   - Prometheus 计数器与仪表：发送、接收、丢弃原因、路由条目、会话数等，
//     经 Gatherer 暴露给 promhttp；丢弃的入站报文对用户静默，只在这里可观测
//   - 带宽统计：按总量、对端设备和消息类型统计加密报文字节数，
//     速率基于 60 个 1 秒桶的滑动窗口
//
// # 快速开始
//
//	m := metrics.New(nil)
//
//	m.BytesSent("peer-1", "text", 128)
//	m.BytesReceived("peer-1", "system", 64)
//
//	stats := m.Bandwidth().ForPeer("peer-1")
//	fmt.Printf("In: %d, Out: %d\n", stats.TotalIn, stats.TotalOut)
//
// # 时钟
//
// 速率窗口使用注入的 clock.Clock，测试中可用 clock.NewMock 精确推进。
//
// # 并发安全
//
// 所有方法都是并发安全的。
package metrics
