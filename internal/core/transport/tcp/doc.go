// Package tcp 实现 TCP 传输层
//
// tcp 只提供可靠有序的字节流；协议握手、分帧和收发循环由
// internal/core/link 完成。
//
// # 地址格式
//
//	host:port（例如 127.0.0.1:4001、[::1]:4001）
//
// # 使用示例
//
//	t := tcp.NewTransport(tcp.DefaultConfig())
//
//	// 监听
//	ln, err := t.Listen("0.0.0.0:4001")
//
//	// 拨号
//	conn, err := t.Dial(ctx, "1.2.3.4:4001")
package tcp
