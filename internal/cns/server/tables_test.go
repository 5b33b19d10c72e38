package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cns/internal/core/storage"
	cnspb "github.com/dep2p/go-cns/pkg/lib/proto/cns"
	"github.com/dep2p/go-cns/pkg/types"
)

const (
	nodeA types.NodeID = "node-a"
	nodeB types.NodeID = "node-b"
	nodeC types.NodeID = "node-c"
)

var (
	locA = types.Location{Node: "node-7", Addr: "10.0.0.7:4000", Port: 3}
	locB = types.Location{Node: "node-8", Addr: "10.0.0.8:4000", Port: 9}
)

// tableHarness 直接驱动状态机
type tableHarness struct {
	t      *testing.T
	tables *tables
	nextID uint64
}

func newHarness(t *testing.T, store storage.LeaseStore) *tableHarness {
	return &tableHarness{t: t, tables: newTables(store, nil)}
}

func (h *tableHarness) header() cnspb.Header {
	h.nextID++
	return cnspb.Header{ReplyPort: 100, RequestID: h.nextID}
}

func (h *tableHarness) register(from types.NodeID, name types.Name, level types.AccessLevel, loc types.Location, key types.RegistrationKey) (types.RegistrationKey, []outbound) {
	h.t.Helper()
	out, _ := h.tables.handle(from, &cnspb.RegisterRequest{Header: h.header(), Name: name, Level: level, Location: loc, Key: key})
	require.NotEmpty(h.t, out)
	reply, ok := out[0].msg.(*cnspb.RegisterReply)
	require.True(h.t, ok)
	assert.Equal(h.t, from, out[0].node)
	return reply.Key, out[1:]
}

func (h *tableHarness) resolve(from types.NodeID, name types.Name, level types.AccessLevel) (types.Location, bool) {
	h.t.Helper()
	out, _ := h.tables.handle(from, &cnspb.ResolveRequest{Header: h.header(), Name: name, Level: level})
	if len(out) == 0 {
		return types.Location{}, false
	}
	reply := out[0].msg.(*cnspb.ResolveReply)
	assert.Equal(h.t, name, reply.Name)
	assert.Equal(h.t, level, reply.Level)
	return reply.Location, true
}

func (h *tableHarness) lease(from types.NodeID, name types.Name, level types.AccessLevel, key types.RegistrationKey) types.RegistrationKey {
	h.t.Helper()
	out, _ := h.tables.handle(from, &cnspb.LeaseRequest{Header: h.header(), Name: name, Level: level, Key: key})
	require.Len(h.t, out, 1)
	return out[0].msg.(*cnspb.LeaseReply).Key
}

func (h *tableHarness) deregister(from types.NodeID, name types.Name, level types.AccessLevel, key types.RegistrationKey) bool {
	h.t.Helper()
	out, rejected := h.tables.handle(from, &cnspb.DeregisterRequest{Header: h.header(), Name: name, Level: level, Key: key})
	require.Len(h.t, out, 1)
	ok := out[0].msg.(*cnspb.DeregisterReply).Success
	assert.Equal(h.t, !ok, rejected)
	return ok
}

func (h *tableHarness) logon(from, id types.NodeID) bool {
	h.t.Helper()
	out, _ := h.tables.handle(from, &cnspb.Logon{ReplyLocation: types.Location{Node: id, Port: 100}})
	require.Len(h.t, out, 1)
	return out[0].msg.(*cnspb.LogonReply).Success
}

// TestTables_Uniqueness 测试同一 (name, level) 只保留一个绑定
func TestTables_Uniqueness(t *testing.T) {
	h := newHarness(t, nil)

	k1, _ := h.register(nodeA, "svc", types.Global, locA, types.NoKey)
	require.False(t, k1.IsZero())

	// 无凭证换位置失败
	k, _ := h.register(nodeB, "svc", types.Global, locB, types.NoKey)
	assert.True(t, k.IsZero())

	// 错误凭证换位置失败
	var other types.KeyMinter
	k, _ = h.register(nodeB, "svc", types.Global, locB, other.Mint())
	assert.True(t, k.IsZero())

	loc, ok := h.resolve(nodeC, "svc", types.Global)
	require.True(t, ok)
	assert.Equal(t, locA, loc)

	// 持有当前凭证可以换位置
	k2, _ := h.register(nodeA, "svc", types.Global, locB, k1)
	require.False(t, k2.IsZero())
	loc, _ = h.resolve(nodeC, "svc", types.Global)
	assert.Equal(t, locB, loc)
}

// TestTables_IdempotentRegister 测试同一位置重复注册
func TestTables_IdempotentRegister(t *testing.T) {
	h := newHarness(t, nil)

	seen := make(map[types.RegistrationKey]bool)
	for i := 0; i < 5; i++ {
		k, _ := h.register(nodeA, "svc", types.Global, locA, types.NoKey)
		require.False(t, k.IsZero(), "第 %d 次注册", i)
		assert.False(t, seen[k], "每次注册签发新凭证")
		seen[k] = true
	}
	assert.Len(t, h.tables.bindings, 1)
}

// TestTables_LeaseGate 测试租约门控
func TestTables_LeaseGate(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())

	lk := h.lease(nodeA, "svc", types.Global, types.NoKey)
	require.False(t, lk.IsZero())

	// 租用但未绑定的名称不可解析
	_, ok := h.resolve(nodeC, "svc", types.Global)
	assert.False(t, ok)

	k, _ := h.register(nodeB, "svc", types.Global, locA, types.NoKey)
	assert.True(t, k.IsZero(), "无凭证注册失败")
	var other types.KeyMinter
	k, _ = h.register(nodeB, "svc", types.Global, locA, other.Mint())
	assert.True(t, k.IsZero(), "错误凭证注册失败")

	k, waking := h.register(nodeB, "svc", types.Global, locA, lk)
	require.False(t, k.IsZero())
	assert.Empty(t, h.tables.leases, "租约被消费")

	// 排队的解析被唤醒
	require.Len(t, waking, 1)
	assert.Equal(t, nodeC, waking[0].node)
	assert.Equal(t, locA, waking[0].msg.(*cnspb.ResolveReply).Location)

	loc, ok := h.resolve(nodeC, "svc", types.Global)
	require.True(t, ok)
	assert.Equal(t, locA, loc)
}

// TestTables_LeasePolicy 测试先租者优先
func TestTables_LeasePolicy(t *testing.T) {
	h := newHarness(t, nil)

	lk := h.lease(nodeA, "svc", types.Global, types.NoKey)
	require.False(t, lk.IsZero())

	assert.True(t, h.lease(nodeB, "svc", types.Global, types.NoKey).IsZero(), "他人无凭证不能覆盖租约")

	lk2 := h.lease(nodeA, "svc", types.Global, lk)
	require.False(t, lk2.IsZero(), "持有者可以续租")
	assert.NotEqual(t, lk, lk2)

	// 旧凭证失效
	assert.True(t, h.lease(nodeA, "svc", types.Global, lk).IsZero())
}

// TestTables_LeaseReplacesBinding 测试用绑定凭证租用（迁移）
func TestTables_LeaseReplacesBinding(t *testing.T) {
	h := newHarness(t, nil)

	k, _ := h.register(nodeA, "svc", types.Global, locA, types.NoKey)
	assert.True(t, h.lease(nodeB, "svc", types.Global, types.NoKey).IsZero(), "绑定存在时无凭证租用失败")

	lk := h.lease(nodeA, "svc", types.Global, k)
	require.False(t, lk.IsZero())
	assert.Empty(t, h.tables.bindings)

	nk, _ := h.register(nodeB, "svc", types.Global, locB, lk)
	require.False(t, nk.IsZero())
	loc, _ := h.resolve(nodeC, "svc", types.Global)
	assert.Equal(t, locB, loc)
}

// TestTables_ResolveFIFO 测试排队解析按序唤醒
func TestTables_ResolveFIFO(t *testing.T) {
	h := newHarness(t, nil)

	var ids []uint64
	for i := 0; i < 5; i++ {
		_, ok := h.resolve(nodeC, "svc", types.Global)
		require.False(t, ok)
		ids = append(ids, h.nextID)
	}
	assert.Len(t, h.tables.pending[pair{"svc", types.Global}], 5)

	_, waking := h.register(nodeA, "svc", types.Global, locA, types.NoKey)
	require.Len(t, waking, 5)
	for i, o := range waking {
		reply := o.msg.(*cnspb.ResolveReply)
		assert.Equal(t, ids[i], reply.RequestID)
		assert.Equal(t, locA, reply.Location)
	}
	assert.Empty(t, h.tables.pending)
}

// TestTables_ScopeFallback 测试作用域回退
func TestTables_ScopeFallback(t *testing.T) {
	h := newHarness(t, nil)
	child := types.MustAccessLevel("node:x", "app")

	h.register(nodeA, "svc", types.Global, locA, types.NoKey)

	loc, ok := h.resolve(nodeC, "svc", child)
	require.True(t, ok)
	assert.Equal(t, locA, loc)

	h.register(nodeB, "svc", child, locB, types.NoKey)

	loc, _ = h.resolve(nodeC, "svc", child)
	assert.Equal(t, locB, loc)
	loc, _ = h.resolve(nodeC, "svc", types.Global)
	assert.Equal(t, locA, loc)

	// 兄弟作用域看不到 child 的绑定
	loc, _ = h.resolve(nodeC, "svc", types.MustAccessLevel("node:x", "other"))
	assert.Equal(t, locA, loc)
}

// TestTables_DescendantWaiters 测试祖先作用域注册唤醒后代排队
func TestTables_DescendantWaiters(t *testing.T) {
	h := newHarness(t, nil)
	parent := types.MustAccessLevel("node:x")
	child := parent.MustChild("app")
	sibling := types.MustAccessLevel("node:y")

	_, ok := h.resolve(nodeC, "svc", child)
	require.False(t, ok)
	_, ok = h.resolve(nodeC, "svc", sibling)
	require.False(t, ok)
	_, ok = h.resolve(nodeC, "other", child)
	require.False(t, ok)

	_, waking := h.register(nodeA, "svc", parent, locA, types.NoKey)
	require.Len(t, waking, 1)
	assert.Equal(t, child, waking[0].msg.(*cnspb.ResolveReply).Level)

	// 兄弟作用域和其他名称仍在排队
	assert.Len(t, h.tables.pending, 2)
	assert.Contains(t, h.tables.pending, pair{"svc", sibling})
	assert.Contains(t, h.tables.pending, pair{"other", child})
}

// TestTables_LinkLost 测试链路丢失清理
func TestTables_LinkLost(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.logon(nodeA, nodeA))

	h.register(nodeA, "svc.a", types.Global, locA, types.NoKey)
	h.register(nodeA, "svc.b", types.Global, locB, types.NoKey)
	h.register(nodeB, "svc.c", types.Global, locB, types.NoKey)
	lk := h.lease(nodeA, "svc.l", types.Global, types.NoKey)

	h.resolve(nodeA, "missing", types.Global)
	h.resolve(nodeB, "missing", types.Global)
	h.resolve(nodeA, "gone", types.Global)

	waiters, bindings := h.tables.linkLost(nodeA)
	assert.Equal(t, 2, waiters)
	assert.Equal(t, 2, bindings)

	assert.NotContains(t, h.tables.sessions, nodeA)
	assert.Len(t, h.tables.bindings, 1)
	assert.Len(t, h.tables.pending[pair{"missing", types.Global}], 1)
	assert.NotContains(t, h.tables.pending, pair{"gone", types.Global})
	assert.Equal(t, lk, h.tables.leases[pair{"svc.l", types.Global}], "租约保留")

	// 被清理的名称重新排队
	_, ok := h.resolve(nodeC, "svc.a", types.Global)
	assert.False(t, ok)

	// 幸存的排队请求仍能被唤醒，且只唤醒 nodeB
	_, waking := h.register(nodeC, "missing", types.Global, locA, types.NoKey)
	require.Len(t, waking, 1)
	assert.Equal(t, nodeB, waking[0].node)

	// 可以重新登录
	assert.True(t, h.logon(nodeA, nodeA))
}

// TestTables_DeregisterIdempotence 测试注销语义
func TestTables_DeregisterIdempotence(t *testing.T) {
	h := newHarness(t, nil)

	assert.True(t, h.deregister(nodeA, "missing", types.Global, types.NoKey))

	k, _ := h.register(nodeA, "svc", types.Global, locA, types.NoKey)
	var other types.KeyMinter
	assert.False(t, h.deregister(nodeB, "svc", types.Global, other.Mint()))
	assert.False(t, h.deregister(nodeB, "svc", types.Global, types.NoKey))

	loc, ok := h.resolve(nodeC, "svc", types.Global)
	require.True(t, ok)
	assert.Equal(t, locA, loc)

	assert.True(t, h.deregister(nodeA, "svc", types.Global, k))
	assert.Empty(t, h.tables.bindings)

	lk := h.lease(nodeA, "svc", types.Global, types.NoKey)
	assert.False(t, h.deregister(nodeB, "svc", types.Global, types.NoKey))
	assert.True(t, h.deregister(nodeA, "svc", types.Global, lk))
	assert.Empty(t, h.tables.leases)
}

// TestTables_RoundTrip 测试注册、解析、注销、解析四步
func TestTables_RoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	loc := types.Location{Node: "node-7", Port: 3}

	k, _ := h.register(nodeA, "svc.echo", types.Global, loc, types.NoKey)
	require.False(t, k.IsZero())

	got, ok := h.resolve(nodeB, "svc.echo", types.Global)
	require.True(t, ok)
	assert.Equal(t, loc, got)

	require.True(t, h.deregister(nodeA, "svc.echo", types.Global, k))

	_, ok = h.resolve(nodeB, "svc.echo", types.Global)
	assert.False(t, ok, "注销后解析排队")
	assert.Len(t, h.tables.pending, 1)
}

// TestTables_Logon 测试登录
func TestTables_Logon(t *testing.T) {
	h := newHarness(t, nil)

	assert.True(t, h.logon(nodeA, nodeA))
	assert.False(t, h.logon(nodeA, nodeA), "重复登录被拒绝")
	assert.False(t, h.logon(nodeB, types.EmptyNodeID), "空标识被拒绝")
	assert.False(t, h.logon(nodeB, nodeC), "标识与链路不符被拒绝")
	assert.True(t, h.logon(nodeB, nodeB))
	assert.Len(t, h.tables.sessions, 2)
}

// TestTables_InvalidRequests 测试无效请求
func TestTables_InvalidRequests(t *testing.T) {
	h := newHarness(t, nil)

	k, _ := h.register(nodeA, "", types.Global, locA, types.NoKey)
	assert.True(t, k.IsZero(), "空名称")
	k, _ = h.register(nodeA, "svc", types.Global, types.Location{}, types.NoKey)
	assert.True(t, k.IsZero(), "空位置")

	out, rejected := h.tables.handle(nodeA, &cnspb.ResolveReply{Name: "svc"})
	assert.Empty(t, out, "响应类消息被忽略")
	assert.False(t, rejected)
}

// TestTables_LoadLeases 测试从存储恢复租约
func TestTables_LoadLeases(t *testing.T) {
	store := storage.NewMemoryStore()

	h := newHarness(t, store)
	lk := h.lease(nodeA, "svc", types.Global, types.NoKey)

	// 新实例（模拟重启）
	restarted := newTables(store, nil)
	require.NoError(t, restarted.load())
	assert.Equal(t, lk, restarted.leases[pair{"svc", types.Global}])

	next := restarted.minter.Mint()
	assert.Greater(t, next.Seq, lk.Seq, "序号不回退")
}
