package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              AccessLevel - 作用域
// ============================================================================

// scopeSeparator 作用域路径分隔符
const scopeSeparator = "/"

// AccessLevel 命名空间作用域
//
// 作用域构成一棵树：全局作用域是根，没有父节点；其余作用域各有唯一父节点。
// 在某作用域注册的名称，对该作用域及其所有后代作用域发起的解析可见。
//
// 内部以从根到当前节点的路径表示（例如 "node:a1/app:chat"），
// 因此 AccessLevel 是可比较的值类型，可直接用作 map 键。
type AccessLevel struct {
	path string
}

// Global 全局作用域（树根）
var Global = AccessLevel{}

// NewAccessLevel 由路径段创建作用域
//
// 不带参数时返回全局作用域。路径段不能为空，也不能包含 "/"。
func NewAccessLevel(segments ...string) (AccessLevel, error) {
	for _, seg := range segments {
		if err := validateSegment(seg); err != nil {
			return Global, err
		}
	}
	return AccessLevel{path: strings.Join(segments, scopeSeparator)}, nil
}

// ParseAccessLevel 解析 String() 的输出
//
// "" 和 "/" 都表示全局作用域。
func ParseAccessLevel(s string) (AccessLevel, error) {
	s = strings.Trim(s, scopeSeparator)
	if s == "" {
		return Global, nil
	}
	return NewAccessLevel(strings.Split(s, scopeSeparator)...)
}

// MustAccessLevel 同 NewAccessLevel，出错时 panic（用于常量式初始化）
func MustAccessLevel(segments ...string) AccessLevel {
	l, err := NewAccessLevel(segments...)
	if err != nil {
		panic(err)
	}
	return l
}

// NodeLevel 返回节点作用域（全局的直接子节点）
func NodeLevel(id NodeID) AccessLevel {
	return Global.MustChild("node:" + string(id))
}

// Child 返回子作用域
func (l AccessLevel) Child(segment string) (AccessLevel, error) {
	if err := validateSegment(segment); err != nil {
		return l, err
	}
	if l.IsGlobal() {
		return AccessLevel{path: segment}, nil
	}
	return AccessLevel{path: l.path + scopeSeparator + segment}, nil
}

// MustChild 同 Child，出错时 panic
func (l AccessLevel) MustChild(segment string) AccessLevel {
	c, err := l.Child(segment)
	if err != nil {
		panic(err)
	}
	return c
}

// Parent 返回父作用域；全局作用域没有父节点
func (l AccessLevel) Parent() (AccessLevel, bool) {
	if l.IsGlobal() {
		return Global, false
	}
	i := strings.LastIndex(l.path, scopeSeparator)
	if i < 0 {
		return Global, true
	}
	return AccessLevel{path: l.path[:i]}, true
}

// IsGlobal 是否为全局作用域
func (l AccessLevel) IsGlobal() bool {
	return l.path == ""
}

// Depth 返回作用域深度（全局为 0）
func (l AccessLevel) Depth() int {
	if l.IsGlobal() {
		return 0
	}
	return strings.Count(l.path, scopeSeparator) + 1
}

// Segments 返回路径段
func (l AccessLevel) Segments() []string {
	if l.IsGlobal() {
		return nil
	}
	return strings.Split(l.path, scopeSeparator)
}

// Chain 返回从当前作用域到全局作用域的查找链（最近的在前）
func (l AccessLevel) Chain() []AccessLevel {
	chain := make([]AccessLevel, 0, l.Depth()+1)
	cur := l
	for {
		chain = append(chain, cur)
		parent, ok := cur.Parent()
		if !ok {
			return chain
		}
		cur = parent
	}
}

// IsAncestorOf 判断 l 是否为 other 的祖先或 other 本身
//
// 即：在 l 注册的名称对在 other 发起的解析是否可见。
func (l AccessLevel) IsAncestorOf(other AccessLevel) bool {
	if l.IsGlobal() || l == other {
		return true
	}
	return strings.HasPrefix(other.path, l.path+scopeSeparator)
}

// String 返回作用域路径；全局作用域为 "/"
func (l AccessLevel) String() string {
	if l.IsGlobal() {
		return scopeSeparator
	}
	return l.path
}

// validateSegment 验证路径段
func validateSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidAccessLevel)
	}
	if strings.Contains(seg, scopeSeparator) {
		return fmt.Errorf("%w: segment %q contains %q", ErrInvalidAccessLevel, seg, scopeSeparator)
	}
	return nil
}
