// Package proto 定义 CNS 的网络协议消息（wire format）
//
// # 子包
//
//   - link: 链路握手帧与信封（Envelope），承载节点间所有流量
//   - cns: 通道名称服务的请求/响应消息
//
// 消息与 Protobuf 线格式兼容（字段号见各子包的 .proto 文件），
// 编解码直接使用 google.golang.org/protobuf/encoding/protowire 完成。
//
// # 与 pkg/types 的区别
//
// pkg/lib/proto 定义网络协议消息（wire format），
// pkg/types 定义 Go 内部数据结构（内存结构）。
package proto
