// Package channel 提供跨节点通道的两端
//
// Input 是绑定在本节点动态端口上的输入端，对外以 types.Location 标识；
// Output 是写向某个 Location 的输出端。通道只保证单条链路内的先进先出，
// 不做重传，也不做流控之外的可靠性保证。
//
// # 使用示例
//
//	in, err := channel.NewInput(h, 64)
//	defer in.Close()
//
//	out := channel.NewOutput(h, in.Location())
//	_ = out.Send(ctx, []byte("hello"))
//
//	msg, err := in.Recv(ctx)
package channel
