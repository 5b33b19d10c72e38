package server

import (
	"fmt"

	"github.com/dep2p/go-cns/config"
)

// Config 服务端配置
type Config struct {
	// ServiceName 在节点服务注册表中的名称
	ServiceName string

	// AdminPort 管理端口
	AdminPort uint64

	// InboxSize 入站消息队列长度
	InboxSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ServiceName: config.DefaultServiceName,
		AdminPort:   config.DefaultAdminPort,
		InboxSize:   1024,
	}
}

// ConfigFromUnified 从统一配置创建服务端配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		ServiceName: cfg.Server.ServiceName,
		AdminPort:   cfg.Server.AdminPort,
		InboxSize:   cfg.Server.InboxSize,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidConfig)
	}
	if c.AdminPort == 0 {
		return fmt.Errorf("%w: admin port 0", ErrInvalidConfig)
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("%w: inbox size must be positive", ErrInvalidConfig)
	}
	return nil
}
