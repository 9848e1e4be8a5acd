// Package types 定义 blemesh 的基础类型
//
// 包括：
//   - 设备与连接：Peer、Connection、ConnectionState、TrustLevel
//   - 消息：Message、MessageType、MessageStatus
//   - 紧急广播：EmergencyMessage、EmergencyClass、Priority
//   - 路由：RouteEntry、TopologySnapshot
//   - 传输事件与对外事件
//   - 错误分类
package types
