// Package interfaces 定义 blemesh 与外部协作方之间的窄接口
//
//   - Transport: 物理传输（BLE 广播/扫描/连接/特征读写）
//   - Suite: 密码学原语（密钥对、ECDH、AEAD）
//   - EventBus: 进程内事件发布/订阅
package interfaces
