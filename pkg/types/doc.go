// Package types 定义 CNS 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 go-cns 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 与 pkg/lib/proto 的区别
//
// pkg/types 定义 Go 内部数据结构（内存结构），
// pkg/lib/proto/cns 定义网络协议消息（wire format）。
//
// # 文件组织
//
//   - ids.go      - NodeID, Name
//   - scope.go    - AccessLevel（命名空间作用域树）
//   - key.go      - RegistrationKey（注册/租约凭证）
//   - location.go - Location（通道端点位置）
//   - events.go   - EvtLinkLost 等事件类型
//   - errors.go   - 公共错误定义
package types
