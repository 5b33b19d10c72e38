package types

import (
	"github.com/google/uuid"
)

// ============================================================================
//                              NodeID - 节点标识
// ============================================================================

// NodeID 节点唯一标识符
//
// 每个节点进程启动时签发一次，在链路握手中交换。
// 空字符串表示"未知节点"，CNS 服务端会拒绝其登录。
type NodeID string

// EmptyNodeID 空节点ID
const EmptyNodeID NodeID = ""

// NewNodeID 签发新的节点标识
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// String 返回 NodeID 字符串
func (id NodeID) String() string {
	return string(id)
}

// ShortString 返回 NodeID 的短字符串表示（日志用）
func (id NodeID) ShortString() string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// IsEmpty 检查 NodeID 是否为空
func (id NodeID) IsEmpty() bool {
	return id == EmptyNodeID
}

// Less 比较两个 NodeID 的字典序
//
// 链路注册表用它在重复连接之间做确定性的取舍。
func (id NodeID) Less(other NodeID) bool {
	return id < other
}

// ============================================================================
//                              Name - 通道名称
// ============================================================================

// Name 通道名称
//
// 不透明字符串，只有与 AccessLevel 组合才有意义。
type Name string

// String 返回名称字符串
func (n Name) String() string {
	return string(n)
}

// Validate 验证名称
func (n Name) Validate() error {
	if n == "" {
		return ErrEmptyName
	}
	if len(n) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// MaxNameLength 最大名称长度
const MaxNameLength = 1024
