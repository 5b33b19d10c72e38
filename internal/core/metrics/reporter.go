package metrics

// Reporter 名称服务指标上报接口
//
// 由服务端事件循环调用，实现必须并发安全且不阻塞。
type Reporter interface {
	// SetTables 更新各表大小
	SetTables(t TableSizes)

	// RequestHandled 记录一条已处理的请求
	RequestHandled(kind string)

	// RequestRejected 记录一条被拒绝的请求
	RequestRejected(kind string)

	// LinkLost 记录一次客户端链路丢失
	LinkLost()

	// HandlerPanic 记录一次处理器 panic
	HandlerPanic()

	// ReplyDropped 记录一条因客户端发送队列已满而丢弃的响应
	ReplyDropped()
}

// TableSizes 服务端各表大小
type TableSizes struct {
	Bindings int
	Leases   int
	Pending  int
	Sessions int
}

// Nop 不做任何事的 Reporter
var Nop Reporter = nopReporter{}

type nopReporter struct{}

func (nopReporter) SetTables(TableSizes)   {}
func (nopReporter) RequestHandled(string)  {}
func (nopReporter) RequestRejected(string) {}
func (nopReporter) LinkLost()              {}
func (nopReporter) HandlerPanic()          {}
func (nopReporter) ReplyDropped()          {}
