// Package link 实现节点间的传输链路与链路注册表
//
// # 链路（Link）
//
// 链路建立在可靠字节流（TCP）之上，生命周期：
//
//  1. 握手：双方各写一帧协议标识（Hello）并校验对方的标识，
//     随后交换节点身份（Identity）。任一步失败即关闭连接。
//  2. 运行：发送循环从有界队列取出信封，每条写一帧并立即 flush；
//     接收循环逐帧解码信封，交给注册表持有者的 Handler 分发。
//  3. 拆除：任一循环遇到连接级错误时拆除链路，且只执行一次：
//     关闭连接、关闭 done 通道（发送循环据此退出，Send 据此失败）、
//     回调 onClose。
//
// # 帧格式
//
//	+----------------+---------------------------+
//	| length (4B BE) | protobuf body (<= 1 MiB)  |
//	+----------------+---------------------------+
//
// # 注册表（Registry）
//
// 注册表保证每个远端节点同一时刻最多一条存活链路。双方同时互相拨号时，
// 保留由较小 NodeID 一方拨出的那条，另一条静默关闭，不产生链路丢失事件。
// 已注册链路被拆除时，注册表在事件总线上发出恰好一次 types.EvtLinkLost。
package link
