package client

import (
	"errors"
	"time"

	"github.com/dep2p/go-cns/config"
)

// Config 客户端代理配置
type Config struct {
	// ServerAddrs 服务端地址，按顺序尝试；为空表示服务端运行在本节点
	ServerAddrs []string

	// AdminPort 服务端管理端口
	AdminPort uint64

	// ServiceName 服务端在节点服务注册表中的名称；登录本节点服务端时据此确认其已安装
	ServiceName string

	// RequestTimeout 调用方超时；0 表示只在链路丢失时解除阻塞
	RequestTimeout time.Duration

	// LogonTimeout 登录等待响应的超时
	LogonTimeout time.Duration

	// InboxSize 响应队列长度
	InboxSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		AdminPort:    config.DefaultAdminPort,
		ServiceName:  config.DefaultServiceName,
		LogonTimeout: 10 * time.Second,
		InboxSize:    256,
	}
}

// ConfigFromUnified 从统一配置创建客户端配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.ServerAddrs = append([]string(nil), cfg.Client.ServerAddrs...)
	c.AdminPort = cfg.Client.AdminPort
	switch {
	case len(c.ServerAddrs) == 0 && cfg.Server.Enable && cfg.Server.ServiceName != "":
		// 登录本节点服务端，以服务端安装时的名称为准
		c.ServiceName = cfg.Server.ServiceName
	case cfg.Client.ServiceName != "":
		c.ServiceName = cfg.Client.ServiceName
	}
	c.RequestTimeout = cfg.Client.RequestTimeout.Duration()
	c.LogonTimeout = cfg.Client.LogonTimeout.Duration()
	return c
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.AdminPort == 0 {
		return errors.New("client: admin port cannot be 0")
	}
	if c.RequestTimeout < 0 || c.LogonTimeout < 0 {
		return errors.New("client: timeouts cannot be negative")
	}
	return nil
}
