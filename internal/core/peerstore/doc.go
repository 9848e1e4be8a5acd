// Package peerstore 实现 PeerRegistry
//
// Registry 是传输层事件的消费方：维护发现/连接的对端、对端公钥
// 和连接质量，驱动 KeyAgreement 建立会话，解密入站报文并按消息
// 类型分发给已注册的处理器。
//
// # 状态机
//
//	Discovered → Connecting → Connected → Disconnected
//	Discovered → Connected（传输层未上报连接阶段时的快速路径）
//	Disconnected → Discovered（重新收到广播）
//
// 对端从不删除：超出存活窗口只会被标记为 Disconnected，
// 信任等级与公钥保留。
//
// # 入站分发
//
// OnDataReceived 解密后按类型调用 Handle 注册的处理器，
// 处理器返回 true 表示已消费。未被消费的非 System 消息作为
// EvtMessageReceived 发出；未被消费的 System 消息丢弃。
// 任何单条报文的失败只记录日志和指标，不影响其他对端。
package peerstore
