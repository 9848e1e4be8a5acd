// Package memory 提供进程内的传输实现
//
// 所有设备共享一个 Air 介质：正在广播的设备会被正在扫描的设备发现，
// 连接是对称的，连接建立后双方都会收到对端在只读通道上发布的公钥，
// 写入的密文以 DataReceived 事件投递给对端。
//
// 事件顺序与真实 BLE 一致：ConnectionChanged 先于 PublicKeyReceived。
//
// 用于测试与 cmd/meshsim。
package memory
