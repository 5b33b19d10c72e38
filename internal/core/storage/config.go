package storage

import (
	"fmt"
	"time"

	"github.com/dep2p/go-cns/config"
)

// Config Storage 模块配置
type Config struct {
	// Backend 存储后端："memory" 或 "badger"
	Backend string

	// Path BadgerDB 数据库目录
	Path string

	// InMemory BadgerDB 以内存模式运行，不落盘（测试用）
	InMemory bool

	// SyncWrites 是否同步写入
	SyncWrites bool

	// GCInterval 值日志垃圾回收间隔；0 表示不回收
	GCInterval time.Duration

	// GCDiscardRatio 垃圾回收丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Backend:        config.StorageMemory,
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// ConfigFromUnified 从统一配置创建存储配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Backend = cfg.Storage.Backend
	c.Path = cfg.Storage.DBPath()
	c.InMemory = cfg.Storage.InMemory
	return c
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Backend {
	case config.StorageMemory:
	case config.StorageBadger:
		if c.Path == "" && !c.InMemory {
			return fmt.Errorf("%w: badger path is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.GCDiscardRatio < 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("%w: gc discard ratio must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}
