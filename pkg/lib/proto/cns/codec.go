package cns

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-cns/pkg/types"
)

// 预定义错误
var (
	// ErrUnknownMessage 未知消息类型
	ErrUnknownMessage = errors.New("cns: unknown message kind")

	// ErrNilMessage 空消息
	ErrNilMessage = errors.New("cns: nil message")

	// ErrMalformed 消息格式错误
	ErrMalformed = errors.New("cns: malformed message")
)

// 字段号（见 cns.proto）
const (
	fieldKind          protowire.Number = 1
	fieldRequestID     protowire.Number = 2
	fieldReplyPort     protowire.Number = 3
	fieldName          protowire.Number = 4
	fieldLevel         protowire.Number = 5
	fieldLocation      protowire.Number = 6
	fieldKey           protowire.Number = 7
	fieldSuccess       protowire.Number = 8
	fieldReplyLocation protowire.Number = 9

	fieldLocNode protowire.Number = 1
	fieldLocAddr protowire.Number = 2
	fieldLocPort protowire.Number = 3

	fieldKeyRandom protowire.Number = 1
	fieldKeySeq    protowire.Number = 2
)

// wireMessage 扁平化的线格式消息
type wireMessage struct {
	kind          Kind
	header        Header
	name          types.Name
	level         types.AccessLevel
	location      types.Location
	key           types.RegistrationKey
	success       bool
	replyLocation types.Location
}

// ============================================================================
//                              编码
// ============================================================================

// Marshal 编码消息
func Marshal(m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}

	w := wireMessage{kind: m.Kind(), header: HeaderOf(m)}
	switch v := m.(type) {
	case *Logon:
		w.replyLocation = v.ReplyLocation
	case *LogonReply:
		w.success = v.Success
	case *RegisterRequest:
		w.name, w.level, w.location, w.key = v.Name, v.Level, v.Location, v.Key
	case *RegisterReply:
		w.key = v.Key
	case *ResolveRequest:
		w.name, w.level = v.Name, v.Level
	case *ResolveReply:
		w.name, w.level, w.location = v.Name, v.Level, v.Location
	case *LeaseRequest:
		w.name, w.level, w.key = v.Name, v.Level, v.Key
	case *LeaseReply:
		w.key = v.Key
	case *DeregisterRequest:
		w.name, w.level, w.key = v.Name, v.Level, v.Key
	case *DeregisterReply:
		w.success = v.Success
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}

	return w.append(nil), nil
}

func (w *wireMessage) append(b []byte) []byte {
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(w.kind))
	if w.header.RequestID != 0 {
		b = protowire.AppendTag(b, fieldRequestID, protowire.VarintType)
		b = protowire.AppendVarint(b, w.header.RequestID)
	}
	if w.header.ReplyPort != 0 {
		b = protowire.AppendTag(b, fieldReplyPort, protowire.VarintType)
		b = protowire.AppendVarint(b, w.header.ReplyPort)
	}
	if w.name != "" {
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, string(w.name))
	}
	if !w.level.IsGlobal() {
		b = protowire.AppendTag(b, fieldLevel, protowire.BytesType)
		b = protowire.AppendString(b, w.level.String())
	}
	b = appendLocation(b, fieldLocation, w.location)
	if !w.key.IsZero() {
		var kb []byte
		kb = protowire.AppendTag(kb, fieldKeyRandom, protowire.BytesType)
		kb = protowire.AppendBytes(kb, w.key.Random[:])
		kb = protowire.AppendTag(kb, fieldKeySeq, protowire.VarintType)
		kb = protowire.AppendVarint(kb, w.key.Seq)
		b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
		b = protowire.AppendBytes(b, kb)
	}
	if w.success {
		b = protowire.AppendTag(b, fieldSuccess, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendLocation(b, fieldReplyLocation, w.replyLocation)
	return b
}

func appendLocation(b []byte, num protowire.Number, loc types.Location) []byte {
	if loc.IsZero() {
		return b
	}
	var lb []byte
	if loc.Node != "" {
		lb = protowire.AppendTag(lb, fieldLocNode, protowire.BytesType)
		lb = protowire.AppendString(lb, string(loc.Node))
	}
	if loc.Addr != "" {
		lb = protowire.AppendTag(lb, fieldLocAddr, protowire.BytesType)
		lb = protowire.AppendString(lb, loc.Addr)
	}
	if loc.Port != 0 {
		lb = protowire.AppendTag(lb, fieldLocPort, protowire.VarintType)
		lb = protowire.AppendVarint(lb, loc.Port)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, lb)
}

// ============================================================================
//                              解码
// ============================================================================

// Unmarshal 解码消息
//
// 未知字段被跳过；未知消息类型返回 ErrUnknownMessage。
func Unmarshal(data []byte) (Message, error) {
	var w wireMessage

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed(n)
		}
		data = data[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			w.kind = Kind(v)
		case num == fieldRequestID && typ == protowire.VarintType:
			w.header.RequestID, n = protowire.ConsumeVarint(data)
		case num == fieldReplyPort && typ == protowire.VarintType:
			w.header.ReplyPort, n = protowire.ConsumeVarint(data)
		case num == fieldName && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			w.name = types.Name(s)
		case num == fieldLevel && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			if n >= 0 {
				level, err := types.ParseAccessLevel(s)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				w.level = level
			}
		case num == fieldLocation && typ == protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				loc, err := consumeLocation(b)
				if err != nil {
					return nil, err
				}
				w.location = loc
			}
		case num == fieldKey && typ == protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				key, err := consumeKey(b)
				if err != nil {
					return nil, err
				}
				w.key = key
			}
		case num == fieldSuccess && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			w.success = protowire.DecodeBool(v)
		case num == fieldReplyLocation && typ == protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				loc, err := consumeLocation(b)
				if err != nil {
					return nil, err
				}
				w.replyLocation = loc
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, malformed(n)
		}
		data = data[n:]
	}

	return w.message()
}

func (w *wireMessage) message() (Message, error) {
	switch w.kind {
	case KindLogon:
		return &Logon{ReplyLocation: w.replyLocation}, nil
	case KindLogonReply:
		return &LogonReply{Success: w.success}, nil
	case KindRegister:
		return &RegisterRequest{Header: w.header, Name: w.name, Level: w.level, Location: w.location, Key: w.key}, nil
	case KindRegisterReply:
		return &RegisterReply{Header: w.header, Key: w.key}, nil
	case KindResolve:
		return &ResolveRequest{Header: w.header, Name: w.name, Level: w.level}, nil
	case KindResolveReply:
		return &ResolveReply{Header: w.header, Name: w.name, Level: w.level, Location: w.location}, nil
	case KindLease:
		return &LeaseRequest{Header: w.header, Name: w.name, Level: w.level, Key: w.key}, nil
	case KindLeaseReply:
		return &LeaseReply{Header: w.header, Key: w.key}, nil
	case KindDeregister:
		return &DeregisterRequest{Header: w.header, Name: w.name, Level: w.level, Key: w.key}, nil
	case KindDeregisterReply:
		return &DeregisterReply{Header: w.header, Success: w.success}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, uint32(w.kind))
	}
}

func consumeLocation(data []byte) (types.Location, error) {
	var loc types.Location
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return loc, malformed(n)
		}
		data = data[n:]

		switch {
		case num == fieldLocNode && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			loc.Node = types.NodeID(s)
		case num == fieldLocAddr && typ == protowire.BytesType:
			loc.Addr, n = protowire.ConsumeString(data)
		case num == fieldLocPort && typ == protowire.VarintType:
			loc.Port, n = protowire.ConsumeVarint(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return loc, malformed(n)
		}
		data = data[n:]
	}
	return loc, nil
}

func consumeKey(data []byte) (types.RegistrationKey, error) {
	var key types.RegistrationKey
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return key, malformed(n)
		}
		data = data[n:]

		switch {
		case num == fieldKeyRandom && typ == protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				id, err := uuid.FromBytes(b)
				if err != nil {
					return key, fmt.Errorf("%w: key: %v", ErrMalformed, err)
				}
				key.Random = id
			}
		case num == fieldKeySeq && typ == protowire.VarintType:
			key.Seq, n = protowire.ConsumeVarint(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return key, malformed(n)
		}
		data = data[n:]
	}
	return key, nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}
