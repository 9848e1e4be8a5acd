// Package blemesh 提供基于 BLE 的离线网状通信
//
// blemesh 在一组经由低功耗蓝牙互相可见的设备之间建立加密的多跳网络，
// 无需任何基础设施即可收发文本消息和紧急广播。
//
// # 核心概念
//
//   - Node: 网格节点，用户交互的主入口
//   - Transport: 物理传输协作方（BLE 适配器或进程内的 memory 实现）
//   - Router: 邻居发现（Hello）与单播选路
//   - Flood: 紧急广播的 TTL 泛洪
//
// # 快速开始
//
//	import "github.com/dep2p/go-blemesh"
//
//	// 1. 创建节点
//	node, err := blemesh.New(
//	    blemesh.WithTransport(bleAdapter),
//	    blemesh.WithDeviceName("rescue-07"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 2. 启动并开始广播/扫描
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	_ = node.StartAdvertising(ctx)
//	_ = node.StartScanning(ctx)
//
//	// 3. 订阅与发送
//	cancel := node.OnMessageReceived(func(from string, msg *blemesh.Message) {
//	    fmt.Println(from, msg.Text())
//	})
//	defer cancel()
//	_, err = node.SendText(ctx, peerID, "hello")
//
//	// 4. 紧急广播
//	_, err = node.SendMedicalEmergency(ctx, &blemesh.Location{Latitude: 52.52, Longitude: 13.40})
//
// # 安全
//
// 每台设备启动时生成一个临时密钥对（默认 X25519），公钥通过只读通道发布。
// 连接后双方各自派生对称会话密钥，所有报文逐跳以 AEAD 加密。
// 会话密钥只保存在内存中。
//
// # 选路
//
// 默认只维护一跳邻居：收到邻居的 Hello 后记录 {dest=邻居, nextHop=邻居, cost=1}，
// 条目超过 300 秒未刷新即失效。开启距离向量模式后 Hello 携带路由表，
// 可学习多跳路由。中继节点依据 Message.Route 与最大跳数防环。
//
// # 紧急广播
//
// 紧急消息以 {kind, payload, ttl, timestamp} 信封向所有已连接设备泛洪，
// 每跳 ttl 减一，ttl 为 0 时只在本地投递。
package blemesh
