// Package storage 提供基于 BadgerDB 的持久化
//
// 只用于对端信任历史；会话密钥和消息都不落盘。
//
// # 键空间
//
//   - t/<peerID> - 信任记录（JSON）
//
// 引擎可运行在磁盘或内存模式，Store 在其上按前缀隔离命名空间。
package storage
