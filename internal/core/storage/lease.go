package storage

import (
	"sort"
	"sync"

	"github.com/dep2p/go-cns/pkg/types"
)

// Lease 持久化的租约记录
type Lease struct {
	Name  types.Name
	Level types.AccessLevel
	Key   types.RegistrationKey
}

// LeaseStore 租约存储
//
// 名称服务把租约写穿到存储，启动时重新加载，使租约跨服务端重启保留。
// 实现必须并发安全。
type LeaseStore interface {
	// Put 写入或覆盖 (Name, Level) 的租约
	Put(lease Lease) error

	// Delete 删除 (Name, Level) 的租约；不存在时不报错
	Delete(name types.Name, level types.AccessLevel) error

	// List 返回全部租约
	List() ([]Lease, error)

	// Close 关闭存储
	Close() error
}

// ============================================================================
//                              内存实现
// ============================================================================

type leaseID struct {
	name  types.Name
	level types.AccessLevel
}

// MemoryStore 内存租约存储
type MemoryStore struct {
	mu     sync.RWMutex
	leases map[leaseID]types.RegistrationKey
	closed bool
}

var _ LeaseStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存租约存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{leases: make(map[leaseID]types.RegistrationKey)}
}

// Put 实现 LeaseStore
func (s *MemoryStore) Put(lease Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.leases[leaseID{lease.Name, lease.Level}] = lease.Key
	return nil
}

// Delete 实现 LeaseStore
func (s *MemoryStore) Delete(name types.Name, level types.AccessLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.leases, leaseID{name, level})
	return nil
}

// List 实现 LeaseStore，按序号排序
func (s *MemoryStore) List() ([]Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]Lease, 0, len(s.leases))
	for id, key := range s.leases {
		out = append(out, Lease{Name: id.name, Level: id.level, Key: key})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Seq < out[j].Key.Seq })
	return out, nil
}

// Close 实现 LeaseStore
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
