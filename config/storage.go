package config

import (
	"fmt"
	"path/filepath"
)

// 存储后端
const (
	// StorageMemory 内存存储（进程退出即丢失）
	StorageMemory = "memory"

	// StorageBadger BadgerDB 持久化存储
	StorageBadger = "badger"
)

// StorageConfig 租约存储配置
//
// 数据目录结构：
//
//	${DataDir}/
//	└── cns.db/           # BadgerDB 主数据库
//	    ├── 000001.vlog   # Value Log
//	    ├── 000001.sst    # SSTable
//	    └── MANIFEST      # 数据库元信息
type StorageConfig struct {
	// Backend 存储后端: "memory" 或 "badger"
	// 默认值: "memory"
	Backend string `json:"backend"`

	// DataDir 数据目录路径
	// 默认值: "./data"
	DataDir string `json:"data_dir"`

	// InMemory BadgerDB 以内存模式运行（测试用）
	InMemory bool `json:"in_memory,omitempty"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend: StorageMemory,
		DataDir: "./data",
	}
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageMemory:
		return nil
	case StorageBadger:
		if c.DataDir == "" && !c.InMemory {
			return fmt.Errorf("storage: data_dir cannot be empty")
		}
		return nil
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Backend)
	}
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "cns.db")
}
