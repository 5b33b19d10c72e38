// Package namedchan 把通道端的创建与名称注册/解析绑定在一起
//
// CreateInput 创建本地输入端并以名称注册其位置；CreateOutput 解析名称并
// 创建写向该位置的输出端。Manager 记录自己创建的每个端，Destroy 对输入端
// 先注销再释放，DestroyAll 对每个端独立尝试并汇总错误。
package namedchan
