package cns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-cns/pkg/types"
)

// TestCodec_RoundTrip 测试各类消息编解码
func TestCodec_RoundTrip(t *testing.T) {
	var minter types.KeyMinter
	key := minter.Mint()
	level := types.MustAccessLevel("node:n1", "app")
	loc := types.Location{Node: "node-7", Addr: "127.0.0.1:9000", Port: 3}
	hdr := Header{ReplyPort: 12, RequestID: 99}

	msgs := []Message{
		&Logon{ReplyLocation: loc},
		&LogonReply{Success: true},
		&RegisterRequest{Header: hdr, Name: "svc.echo", Level: level, Location: loc, Key: key},
		&RegisterReply{Header: hdr, Key: key},
		&ResolveRequest{Header: hdr, Name: "svc.echo", Level: types.Global},
		&ResolveReply{Header: hdr, Name: "svc.echo", Level: level, Location: loc},
		&LeaseRequest{Header: hdr, Name: "svc.echo", Level: level},
		&LeaseReply{Header: hdr},
		&DeregisterRequest{Header: hdr, Name: "svc.echo", Level: level, Key: key},
		&DeregisterReply{Header: hdr, Success: false},
	}

	for _, m := range msgs {
		t.Run(m.Kind().String(), func(t *testing.T) {
			data, err := Marshal(m)
			require.NoError(t, err)

			decoded, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, m, decoded)
		})
	}
}

// TestCodec_UnknownKind 测试未知消息类型
func TestCodec_UnknownKind(t *testing.T) {
	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, 77)

	_, err := Unmarshal(b)
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = Unmarshal(nil)
	assert.ErrorIs(t, err, ErrUnknownMessage, "缺少 kind 字段")
}

// TestCodec_SkipsUnknownFields 测试跳过未知字段
func TestCodec_SkipsUnknownFields(t *testing.T) {
	data, err := Marshal(&LogonReply{Success: true})
	require.NoError(t, err)

	data = protowire.AppendTag(data, 42, protowire.BytesType)
	data = protowire.AppendString(data, "future")

	m, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, &LogonReply{Success: true}, m)
}

// TestCodec_Malformed 测试截断输入
func TestCodec_Malformed(t *testing.T) {
	data, err := Marshal(&ResolveRequest{Name: "svc.echo"})
	require.NoError(t, err)

	_, err = Unmarshal(data[:len(data)-2])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMarshal_Nil(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestHeaderOf(t *testing.T) {
	assert.Equal(t, Header{}, HeaderOf(&Logon{}))
	assert.Equal(t, uint64(5), HeaderOf(&LeaseReply{Header: Header{RequestID: 5}}).RequestID)
}
