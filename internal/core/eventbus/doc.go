// Package eventbus 实现进程内事件总线
//
// 提供类型安全的事件发布/订阅机制，支持：
//   - 多订阅者
//   - 缓冲区配置
//   - 无损订阅（Lossless）
//   - 有状态模式（Stateful）
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.EvtLinkLost), eventbus.Lossless())
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.EvtLinkLost))
//	defer em.Close()
//	em.Emit(types.EvtLinkLost{Node: id})
//
// # 投递语义
//
// 默认订阅在缓冲区满时丢弃事件并按节流打印慢消费者警告；
// 无损订阅让发射方等待，直到事件被接收或订阅关闭。
// CNS 服务端和客户端代理以无损方式订阅链路丢失事件。
//
// # 架构定位
//
// Tier: Core Layer Level 1（无依赖）
//
// 依赖关系：
//   - 依赖：pkg/interfaces
//   - 被依赖：link, host, cns/server, cns/client
package eventbus
