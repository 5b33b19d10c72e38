package server

import (
	"github.com/dep2p/go-cns/internal/core/storage"
	cnspb "github.com/dep2p/go-cns/pkg/lib/proto/cns"
	"github.com/dep2p/go-cns/pkg/types"
)

// ============================================================================
//                              表项
// ============================================================================

// pair 名称与作用域组成的表键
type pair struct {
	name  types.Name
	level types.AccessLevel
}

// binding 名称绑定
type binding struct {
	loc   types.Location
	key   types.RegistrationKey
	owner types.NodeID
}

// waiter 排队中的解析请求
type waiter struct {
	node      types.NodeID
	port      uint64
	requestID uint64
}

// outbound 待发送的响应
type outbound struct {
	node types.NodeID
	port uint64
	msg  cnspb.Message
}

// tables 服务端权威状态
//
// 只由事件循环访问，不加锁。每个 handle/linkLost 调用返回本次事件产生的响应，
// 由调用方在表更新完成后发送。
type tables struct {
	bindings map[pair]binding
	leases   map[pair]types.RegistrationKey
	pending  map[pair][]waiter
	sessions map[types.NodeID]types.Location

	minter *types.KeyMinter
	store  storage.LeaseStore

	out []outbound
}

func newTables(store storage.LeaseStore, minter *types.KeyMinter) *tables {
	if minter == nil {
		minter = new(types.KeyMinter)
	}
	return &tables{
		bindings: make(map[pair]binding),
		leases:   make(map[pair]types.RegistrationKey),
		pending:  make(map[pair][]waiter),
		sessions: make(map[types.NodeID]types.Location),
		minter:   minter,
		store:    store,
	}
}

// load 从存储恢复租约
func (t *tables) load() error {
	if t.store == nil {
		return nil
	}
	leases, err := t.store.List()
	if err != nil {
		return err
	}
	for _, l := range leases {
		t.leases[pair{l.Name, l.Level}] = l.Key
		t.minter.Advance(l.Key.Seq)
	}
	if len(leases) > 0 {
		logger.Info("已恢复租约", "count", len(leases))
	}
	return nil
}

// sizes 返回各表大小
func (t *tables) sizes() (bindings, leases, pending, sessions int) {
	for _, ws := range t.pending {
		pending += len(ws)
	}
	return len(t.bindings), len(t.leases), pending, len(t.sessions)
}

// ============================================================================
//                              消息处理
// ============================================================================

// handle 处理一条入站消息，返回响应与是否为负面响应
func (t *tables) handle(from types.NodeID, msg cnspb.Message) ([]outbound, bool) {
	t.out = nil

	var ok bool
	switch m := msg.(type) {
	case *cnspb.Logon:
		ok = t.logon(from, m)
	case *cnspb.RegisterRequest:
		ok = t.register(from, m)
	case *cnspb.ResolveRequest:
		ok = t.resolve(from, m)
	case *cnspb.LeaseRequest:
		ok = t.lease(from, m)
	case *cnspb.DeregisterRequest:
		ok = t.deregister(from, m)
	default:
		logger.Warn("忽略非请求消息", "kind", msg.Kind().String(), "from", from.ShortString())
		return nil, false
	}

	out := t.out
	t.out = nil
	return out, !ok
}

// logon 处理登录
//
// 节点标识为空、与链路身份不符，或已有会话时拒绝。
func (t *tables) logon(from types.NodeID, m *cnspb.Logon) bool {
	id := m.ReplyLocation.Node
	ok := !id.IsEmpty() && id == from
	if ok {
		if _, exists := t.sessions[id]; exists {
			ok = false
		}
	}
	if ok {
		t.sessions[id] = m.ReplyLocation
		logger.Info("客户端已登录", "node", id.ShortString())
	} else {
		logger.Debug("拒绝登录", "node", id.ShortString(), "from", from.ShortString())
	}

	t.reply(from, m.ReplyLocation.Port, &cnspb.LogonReply{Success: ok})
	return ok
}

// register 处理注册
func (t *tables) register(from types.NodeID, m *cnspb.RegisterRequest) bool {
	p := pair{m.Name, m.Level}
	reply := &cnspb.RegisterReply{Header: m.Header}

	if m.Name.Validate() != nil || m.Location.IsZero() {
		t.reply(from, m.ReplyPort, reply)
		return false
	}

	if b, exists := t.bindings[p]; exists {
		// 同一位置的重复注册无需凭证；换位置必须出示当前凭证
		if b.loc != m.Location && (m.Key.IsZero() || m.Key != b.key) {
			t.reply(from, m.ReplyPort, reply)
			return false
		}
	} else if leaseKey, leased := t.leases[p]; leased {
		if m.Key != leaseKey {
			t.reply(from, m.ReplyPort, reply)
			return false
		}
		t.dropLease(p)
	}

	key := t.minter.Mint()
	t.bindings[p] = binding{loc: m.Location, key: key, owner: from}
	reply.Key = key
	t.reply(from, m.ReplyPort, reply)

	logger.Debug("名称已注册", "name", m.Name, "level", m.Level.String(), "loc", m.Location.String())

	t.wakeWaiters(p)
	return true
}

// wakeWaiters 用新绑定满足排队的解析
//
// 新绑定对同名、作用域为其后代的排队请求都可见；每个请求重新解析，
// 仍无法满足的保留原有顺序继续排队。
func (t *tables) wakeWaiters(p pair) {
	for q, ws := range t.pending {
		if q.name != p.name || !p.level.IsAncestorOf(q.level) {
			continue
		}
		loc, found := t.lookup(q.name, q.level)
		if !found {
			continue
		}
		for _, w := range ws {
			t.reply(w.node, w.port, &cnspb.ResolveReply{
				Header:   cnspb.Header{ReplyPort: w.port, RequestID: w.requestID},
				Name:     q.name,
				Level:    q.level,
				Location: loc,
			})
		}
		delete(t.pending, q)
	}
}

// resolve 处理解析
//
// 未找到时只在请求的原始作用域排队。
func (t *tables) resolve(from types.NodeID, m *cnspb.ResolveRequest) bool {
	if loc, found := t.lookup(m.Name, m.Level); found {
		t.reply(from, m.ReplyPort, &cnspb.ResolveReply{
			Header:   m.Header,
			Name:     m.Name,
			Level:    m.Level,
			Location: loc,
		})
		return true
	}

	p := pair{m.Name, m.Level}
	t.pending[p] = append(t.pending[p], waiter{node: from, port: m.ReplyPort, requestID: m.RequestID})
	logger.Debug("解析已排队", "name", m.Name, "level", m.Level.String(), "depth", len(t.pending[p]))
	return true
}

// lookup 从 level 沿父作用域向上查找绑定，最近的优先
func (t *tables) lookup(name types.Name, level types.AccessLevel) (types.Location, bool) {
	for _, l := range level.Chain() {
		if b, ok := t.bindings[pair{name, l}]; ok {
			return b.loc, true
		}
	}
	return types.Location{}, false
}

// lease 处理租约
//
// 先用出示的凭证释放已有绑定或租约；已被他人租用的名称不可再租。
func (t *tables) lease(from types.NodeID, m *cnspb.LeaseRequest) bool {
	p := pair{m.Name, m.Level}
	reply := &cnspb.LeaseReply{Header: m.Header}

	if m.Name.Validate() != nil || !t.release(p, m.Key) {
		t.reply(from, m.ReplyPort, reply)
		return false
	}

	key := t.minter.Mint()
	t.leases[p] = key
	t.persist(storage.Lease{Name: m.Name, Level: m.Level, Key: key})

	reply.Key = key
	t.reply(from, m.ReplyPort, reply)
	logger.Debug("名称已租用", "name", m.Name, "level", m.Level.String())
	return true
}

// deregister 处理注销
func (t *tables) deregister(from types.NodeID, m *cnspb.DeregisterRequest) bool {
	ok := t.release(pair{m.Name, m.Level}, m.Key)
	t.reply(from, m.ReplyPort, &cnspb.DeregisterReply{Header: m.Header, Success: ok})
	return ok
}

// release 用凭证释放 (name, level) 上的绑定或租约
//
// 两者都不存在时视为成功；存在但凭证不符时失败且不做修改。
func (t *tables) release(p pair, key types.RegistrationKey) bool {
	if b, ok := t.bindings[p]; ok {
		if key.IsZero() || key != b.key {
			return false
		}
		delete(t.bindings, p)
		return true
	}
	if leaseKey, ok := t.leases[p]; ok {
		if key != leaseKey {
			return false
		}
		t.dropLease(p)
	}
	return true
}

// ============================================================================
//                              链路丢失
// ============================================================================

// linkLost 清理节点的会话、排队解析与绑定
//
// 租约不随链路丢失释放。
func (t *tables) linkLost(node types.NodeID) (purgedWaiters, purgedBindings int) {
	delete(t.sessions, node)

	for p, ws := range t.pending {
		kept := ws[:0]
		for _, w := range ws {
			if w.node != node {
				kept = append(kept, w)
			}
		}
		purgedWaiters += len(ws) - len(kept)
		if len(kept) == 0 {
			delete(t.pending, p)
		} else {
			t.pending[p] = kept
		}
	}

	for p, b := range t.bindings {
		if b.owner == node {
			delete(t.bindings, p)
			purgedBindings++
		}
	}
	return purgedWaiters, purgedBindings
}

// ============================================================================
//                              内部
// ============================================================================

func (t *tables) reply(node types.NodeID, port uint64, msg cnspb.Message) {
	t.out = append(t.out, outbound{node: node, port: port, msg: msg})
}

func (t *tables) dropLease(p pair) {
	delete(t.leases, p)
	if t.store == nil {
		return
	}
	if err := t.store.Delete(p.name, p.level); err != nil {
		logger.Warn("删除持久化租约失败", "name", p.name, "error", err)
	}
}

func (t *tables) persist(l storage.Lease) {
	if t.store == nil {
		return
	}
	if err := t.store.Put(l); err != nil {
		logger.Warn("持久化租约失败", "name", l.Name, "error", err)
	}
}
