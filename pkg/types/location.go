package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
//                              Location - 端点位置
// ============================================================================

// Location 通道输入端的可连接位置
//
// 由所在节点、节点监听地址和节点内端口组成。两个 Location 相等当且仅当三者都相等。
type Location struct {
	// Node 所在节点
	Node NodeID

	// Addr 节点监听地址（host:port）
	Addr string

	// Port 节点内通道端口
	Port uint64
}

// IsZero 是否为空位置
func (l Location) IsZero() bool {
	return l == Location{}
}

// String 返回 "<node>@<addr>/<port>" 形式
func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s@%s/%d", l.Node, l.Addr, l.Port)
}

// ParseLocation 解析 String() 的输出
func ParseLocation(s string) (Location, error) {
	node, rest, ok := strings.Cut(s, "@")
	if !ok || node == "" {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	i := strings.LastIndex(rest, "/")
	if i <= 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	port, err := strconv.ParseUint(rest[i+1:], 10, 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	return Location{Node: NodeID(node), Addr: rest[:i], Port: port}, nil
}
