// Package eventbus 实现进程内事件总线
//
// 提供按事件类型分发的发布/订阅机制，支持多订阅者、缓冲区配置、
// 发射器引用计数与有状态模式（新订阅者收到最后一个事件）。
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.EvtMessageReceived))
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.EvtMessageReceived))
//	defer em.Close()
//	em.Emit(types.EvtMessageReceived{...})
//
// 发射不会阻塞：订阅者缓冲区满时事件被丢弃并计数，
// 避免慢消费者拖住协议事件循环。
package eventbus
