package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-cns/pkg/lib/log"
	"github.com/dep2p/go-cns/pkg/types"
)

// logger 是 badger 存储的日志记录器
var logger = log.Logger("core/storage")

// leasePrefix 租约键前缀
var leasePrefix = []byte("/cns/lease/")

// BadgerStore 基于 BadgerDB 的租约存储
//
// 键：leasePrefix + level + 0x00 + name；值：protowire 编码的租约记录。
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool

	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
}

var _ LeaseStore = (*BadgerStore)(nil)

// NewBadgerStore 打开 BadgerDB 租约存储
func NewBadgerStore(cfg Config) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	s := &BadgerStore{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// Put 实现 LeaseStore
func (s *BadgerStore) Put(lease Lease) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(leaseKey(lease.Name, lease.Level), encodeLease(lease))
	})
}

// Delete 实现 LeaseStore
func (s *BadgerStore) Delete(name types.Name, level types.AccessLevel) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(leaseKey(name, level))
	})
}

// List 实现 LeaseStore，按序号排序
func (s *BadgerStore) List() ([]Lease, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []Lease
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = leasePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(leasePrefix); it.ValidForPrefix(leasePrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				lease, err := decodeLease(val)
				if err != nil {
					return err
				}
				out = append(out, lease)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key.Seq < out[j].Key.Seq })
	return out, nil
}

// Close 实现 LeaseStore
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.gcCancel != nil {
		s.gcCancel()
		s.gcWg.Wait()
	}
	return s.db.Close()
}

// startGC 启动值日志垃圾回收
func (s *BadgerStore) startGC(interval time.Duration, ratio float64) {
	ctx, cancel := context.WithCancel(context.Background())
	s.gcCancel = cancel

	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 一次尽量多回收几个文件
				for s.db.RunValueLogGC(ratio) == nil {
				}
			}
		}
	}()
}

// ============================================================================
//                              编码
// ============================================================================

func leaseKey(name types.Name, level types.AccessLevel) []byte {
	k := make([]byte, 0, len(leasePrefix)+len(level.String())+1+len(name))
	k = append(k, leasePrefix...)
	k = append(k, level.String()...)
	k = append(k, 0)
	return append(k, name...)
}

func encodeLease(l Lease) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, string(l.Name))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, l.Level.String())
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, l.Key.Random[:])
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	return protowire.AppendVarint(b, l.Key.Seq)
}

func decodeLease(data []byte) (Lease, error) {
	var l Lease
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return l, corrupted(protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			l.Name = types.Name(s)
		case num == 2 && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			if n >= 0 {
				level, err := types.ParseAccessLevel(s)
				if err != nil {
					return l, corrupted(err)
				}
				l.Level = level
			}
		case num == 3 && typ == protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				id, err := uuid.FromBytes(b)
				if err != nil {
					return l, corrupted(err)
				}
				l.Key.Random = id
			}
		case num == 4 && typ == protowire.VarintType:
			l.Key.Seq, n = protowire.ConsumeVarint(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return l, corrupted(protowire.ParseError(n))
		}
		data = data[n:]
	}
	if l.Name == "" || l.Key.IsZero() {
		return l, corrupted(errors.New("missing name or key"))
	}
	return l, nil
}

func corrupted(err error) error {
	return fmt.Errorf("%w: %v", ErrCorrupted, err)
}

// ============================================================================
//                              日志适配
// ============================================================================

// badgerLogger 将 badger.Logger 适配到组件日志
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}
