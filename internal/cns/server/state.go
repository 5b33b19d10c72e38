package server

// State 服务状态
type State int32

const (
	// StateNotStarted 尚未启动
	StateNotStarted State = iota
	// StateRunning 运行中
	StateRunning
	// StateStopped 已停止（终态）
	StateStopped
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats 服务端统计快照
type Stats struct {
	Bindings int
	Leases   int
	Pending  int
	Sessions int

	// Requests 已处理的请求总数
	Requests uint64

	// Rejected 负面响应总数
	Rejected uint64

	// LinksLost 处理过的链路丢失事件数
	LinksLost uint64
}
