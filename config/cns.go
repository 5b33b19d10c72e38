package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultServiceName 名称服务在节点服务注册表中的默认名称
const DefaultServiceName = "Channel Name Server"

// DefaultAdminPort 名称服务默认管理端口
const DefaultAdminPort uint64 = 1

// ============================================================================
//                              服务端
// ============================================================================

// ServerConfig 名称服务端配置
type ServerConfig struct {
	// Enable 是否在本节点运行名称服务
	Enable bool `json:"enable"`

	// ServiceName 服务注册名
	// 默认值: "Channel Name Server"
	ServiceName string `json:"service_name"`

	// AdminPort 管理端口（客户端请求发往该端口）
	// 默认值: 1
	AdminPort uint64 `json:"admin_port"`

	// InboxSize 入站消息队列长度
	// 默认值: 1024
	InboxSize int `json:"inbox_size"`
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enable:      false,
		ServiceName: DefaultServiceName,
		AdminPort:   DefaultAdminPort,
		InboxSize:   1024,
	}
}

// Validate 验证服务端配置
func (c *ServerConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("server: service_name cannot be empty")
	}
	if c.AdminPort == 0 {
		return errors.New("server: admin_port cannot be 0")
	}
	if c.InboxSize <= 0 {
		return errors.New("server: inbox_size must be positive")
	}
	return nil
}

// ============================================================================
//                              客户端
// ============================================================================

// ClientConfig 名称服务客户端代理配置
type ClientConfig struct {
	// Enable 是否在本节点运行客户端代理
	Enable bool `json:"enable"`

	// ServerAddrs 名称服务地址列表，按顺序尝试，第一个成功的生效
	ServerAddrs []string `json:"server_addrs"`

	// ServiceName 服务端的服务名；本节点运行服务端时以服务端配置为准
	ServiceName string `json:"service_name"`

	// AdminPort 服务端管理端口
	// 默认值: 1
	AdminPort uint64 `json:"admin_port"`

	// RequestTimeout 调用方超时；0 表示只在链路丢失时解除阻塞
	// 默认值: 0
	RequestTimeout Duration `json:"request_timeout"`

	// LogonTimeout 登录等待响应的超时
	// 默认值: 10s
	LogonTimeout Duration `json:"logon_timeout"`
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Enable:       false,
		ServiceName:  DefaultServiceName,
		AdminPort:    DefaultAdminPort,
		LogonTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证客户端配置
func (c *ClientConfig) Validate() error {
	for _, addr := range c.ServerAddrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("client: invalid server address %q: %w", addr, err)
		}
	}
	if c.AdminPort == 0 {
		return errors.New("client: admin_port cannot be 0")
	}
	if c.RequestTimeout < 0 || c.LogonTimeout < 0 {
		return errors.New("client: timeouts cannot be negative")
	}
	return nil
}
