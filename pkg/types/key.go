package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// ============================================================================
//                              RegistrationKey - 注册凭证
// ============================================================================

// RegistrationKey 注册凭证
//
// 成功注册或租约名称后返回给调用方，之后修改或释放该注册都必须出示。
// 由随机部分（UUIDv4）加单调递增序号组成，不可猜测且不会重复。
// 零值表示"无凭证"。
type RegistrationKey struct {
	Random uuid.UUID
	Seq    uint64
}

// NoKey 空凭证
var NoKey RegistrationKey

// IsZero 是否为空凭证
func (k RegistrationKey) IsZero() bool {
	return k == NoKey
}

// String 返回 "<uuid>#<seq>" 形式；空凭证为 ""
func (k RegistrationKey) String() string {
	if k.IsZero() {
		return ""
	}
	return k.Random.String() + "#" + strconv.FormatUint(k.Seq, 10)
}

// ParseRegistrationKey 解析 String() 的输出
func ParseRegistrationKey(s string) (RegistrationKey, error) {
	if s == "" {
		return NoKey, nil
	}
	randPart, seqPart, ok := strings.Cut(s, "#")
	if !ok {
		return NoKey, fmt.Errorf("%w: missing sequence", ErrInvalidKey)
	}
	id, err := uuid.Parse(randPart)
	if err != nil {
		return NoKey, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return NoKey, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return RegistrationKey{Random: id, Seq: seq}, nil
}

// KeyMinter 凭证签发器
//
// 并发安全。序号从 1 开始单调递增。
type KeyMinter struct {
	seq atomic.Uint64
}

// Mint 签发一个新凭证
func (m *KeyMinter) Mint() RegistrationKey {
	return RegistrationKey{
		Random: uuid.New(),
		Seq:    m.seq.Add(1),
	}
}

// Advance 确保后续签发的序号大于 seq（从持久化状态恢复时使用）
func (m *KeyMinter) Advance(seq uint64) {
	for {
		cur := m.seq.Load()
		if cur >= seq {
			return
		}
		if m.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
