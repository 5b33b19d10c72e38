// Package cns 定义通道名称服务（CNS）的协议消息
//
// 消息集合是封闭的：Logon、Register、Resolve、Lease、Deregister 五种请求
// 及其对应响应，共十种。除 Logon/LogonReply 外，每条消息都携带回复端口
// （ReplyPort）和请求关联号（RequestID）。
package cns

import (
	"github.com/dep2p/go-cns/pkg/types"
)

// Kind 消息类型
type Kind uint32

const (
	// KindUnknown 未知类型
	KindUnknown Kind = iota
	// KindLogon 登录请求
	KindLogon
	// KindLogonReply 登录响应
	KindLogonReply
	// KindRegister 注册请求
	KindRegister
	// KindRegisterReply 注册响应
	KindRegisterReply
	// KindResolve 解析请求
	KindResolve
	// KindResolveReply 解析响应
	KindResolveReply
	// KindLease 租约请求
	KindLease
	// KindLeaseReply 租约响应
	KindLeaseReply
	// KindDeregister 注销请求
	KindDeregister
	// KindDeregisterReply 注销响应
	KindDeregisterReply
)

// String 返回类型名称
func (k Kind) String() string {
	switch k {
	case KindLogon:
		return "logon"
	case KindLogonReply:
		return "logon_reply"
	case KindRegister:
		return "register"
	case KindRegisterReply:
		return "register_reply"
	case KindResolve:
		return "resolve"
	case KindResolveReply:
		return "resolve_reply"
	case KindLease:
		return "lease"
	case KindLeaseReply:
		return "lease_reply"
	case KindDeregister:
		return "deregister"
	case KindDeregisterReply:
		return "deregister_reply"
	default:
		return "unknown"
	}
}

// Message 协议消息
//
// 只有本包定义的类型实现该接口。
type Message interface {
	Kind() Kind
	isMessage()
}

// Header 请求公共头
type Header struct {
	// ReplyPort 回复目的端口（发送方节点内）
	ReplyPort uint64

	// RequestID 请求关联号，由发送方分配，响应原样带回
	RequestID uint64
}

// ============================================================================
//                              Logon
// ============================================================================

// Logon 登录请求
type Logon struct {
	// ReplyLocation 客户端接收响应的位置
	ReplyLocation types.Location
}

// LogonReply 登录响应
type LogonReply struct {
	Success bool
}

// ============================================================================
//                              Register
// ============================================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Header
	Name     types.Name
	Level    types.AccessLevel
	Location types.Location
	Key      types.RegistrationKey
}

// RegisterReply 注册响应；Key 为空表示失败
type RegisterReply struct {
	Header
	Key types.RegistrationKey
}

// ============================================================================
//                              Resolve
// ============================================================================

// ResolveRequest 解析请求
type ResolveRequest struct {
	Header
	Name  types.Name
	Level types.AccessLevel
}

// ResolveReply 解析响应；Location 为空表示未找到
type ResolveReply struct {
	Header
	Name     types.Name
	Level    types.AccessLevel
	Location types.Location
}

// ============================================================================
//                              Lease
// ============================================================================

// LeaseRequest 租约请求
type LeaseRequest struct {
	Header
	Name  types.Name
	Level types.AccessLevel
	Key   types.RegistrationKey
}

// LeaseReply 租约响应；Key 为空表示失败
type LeaseReply struct {
	Header
	Key types.RegistrationKey
}

// ============================================================================
//                              Deregister
// ============================================================================

// DeregisterRequest 注销请求
type DeregisterRequest struct {
	Header
	Name  types.Name
	Level types.AccessLevel
	Key   types.RegistrationKey
}

// DeregisterReply 注销响应
type DeregisterReply struct {
	Header
	Success bool
}

func (*Logon) Kind() Kind             { return KindLogon }
func (*LogonReply) Kind() Kind        { return KindLogonReply }
func (*RegisterRequest) Kind() Kind   { return KindRegister }
func (*RegisterReply) Kind() Kind     { return KindRegisterReply }
func (*ResolveRequest) Kind() Kind    { return KindResolve }
func (*ResolveReply) Kind() Kind      { return KindResolveReply }
func (*LeaseRequest) Kind() Kind      { return KindLease }
func (*LeaseReply) Kind() Kind        { return KindLeaseReply }
func (*DeregisterRequest) Kind() Kind { return KindDeregister }
func (*DeregisterReply) Kind() Kind   { return KindDeregisterReply }

func (*Logon) isMessage()             {}
func (*LogonReply) isMessage()        {}
func (*RegisterRequest) isMessage()   {}
func (*RegisterReply) isMessage()     {}
func (*ResolveRequest) isMessage()    {}
func (*ResolveReply) isMessage()      {}
func (*LeaseRequest) isMessage()      {}
func (*LeaseReply) isMessage()        {}
func (*DeregisterRequest) isMessage() {}
func (*DeregisterReply) isMessage()   {}

// HeaderOf 返回消息头；Logon/LogonReply 返回零值
func HeaderOf(m Message) Header {
	switch v := m.(type) {
	case *RegisterRequest:
		return v.Header
	case *RegisterReply:
		return v.Header
	case *ResolveRequest:
		return v.Header
	case *ResolveReply:
		return v.Header
	case *LeaseRequest:
		return v.Header
	case *LeaseReply:
		return v.Header
	case *DeregisterRequest:
		return v.Header
	case *DeregisterReply:
		return v.Header
	default:
		return Header{}
	}
}
