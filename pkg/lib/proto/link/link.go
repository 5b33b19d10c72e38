// Package link 定义链路层的线格式：握手帧与数据信封
package link

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-cns/pkg/types"
)

// ErrMalformed 帧格式错误
var ErrMalformed = errors.New("link: malformed frame")

// ============================================================================
//                              Hello
// ============================================================================

// Hello 握手第一帧，携带协议标识
type Hello struct {
	ProtocolID string
}

// Marshal 编码
func (h *Hello) Marshal() []byte {
	var b []byte
	if h.ProtocolID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, h.ProtocolID)
	}
	return b
}

// Unmarshal 解码
func (h *Hello) Unmarshal(data []byte) error {
	*h = Hello{}
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			var n int
			h.ProtocolID, n = protowire.ConsumeString(b)
			return n
		}
		return unknownField
	})
}

// ============================================================================
//                              Identity
// ============================================================================

// Identity 握手第二帧，携带节点身份与监听地址
type Identity struct {
	// ID 节点标识
	ID types.NodeID

	// ListenAddr 节点对外监听地址；纯客户端节点可以为空
	ListenAddr string
}

// Marshal 编码
func (id *Identity) Marshal() []byte {
	var b []byte
	if id.ID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, string(id.ID))
	}
	if id.ListenAddr != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, id.ListenAddr)
	}
	return b
}

// Unmarshal 解码
func (id *Identity) Unmarshal(data []byte) error {
	*id = Identity{}
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		var n int
		switch {
		case num == 1 && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(b)
			id.ID = types.NodeID(s)
		case num == 2 && typ == protowire.BytesType:
			id.ListenAddr, n = protowire.ConsumeString(b)
		default:
			return unknownField
		}
		return n
	})
}

// ============================================================================
//                              Envelope
// ============================================================================

// Envelope 数据信封
//
// Port 指定接收节点内的目的端口，Payload 对链路层不透明。
type Envelope struct {
	Port    uint64
	Payload []byte
}

// Marshal 编码
func (e *Envelope) Marshal() []byte {
	b := make([]byte, 0, len(e.Payload)+16)
	if e.Port != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, e.Port)
	}
	if len(e.Payload) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Payload)
	}
	return b
}

// Unmarshal 解码
//
// Payload 拷贝自 data，调用方可以复用 data。
func (e *Envelope) Unmarshal(data []byte) error {
	*e = Envelope{}
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		var n int
		switch {
		case num == 1 && typ == protowire.VarintType:
			e.Port, n = protowire.ConsumeVarint(b)
		case num == 2 && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				e.Payload = append([]byte(nil), v...)
			}
		default:
			return unknownField
		}
		return n
	})
}

// unknownField 字段回调返回该值表示未识别，字段被跳过
const unknownField = -1 << 20

// walk 遍历字段
func walk(data []byte, field func(protowire.Number, protowire.Type, []byte) int) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		n = field(num, typ, data)
		if n == unknownField {
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return nil
}
