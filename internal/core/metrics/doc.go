// Package metrics 提供名称服务的监控指标
//
// 指标以 Prometheus 格式导出，命名空间为 cns_server：
//   - bindings / leases / pending_resolves / sessions：各表当前大小
//   - requests_total{kind} / rejected_total{kind}：按消息类型计数
//   - link_lost_total / handler_panics_total
//   - replies_dropped_total：客户端发送队列已满而丢弃的响应
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module(),
//	    fx.Provide(func() prometheus.Registerer { return reg }),
//	)
//
// 关闭指标（config.Metrics.Enable=false）时提供 metrics.Nop。
package metrics
