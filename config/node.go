package config

import (
	"fmt"
	"net"
)

// NodeConfig 节点配置
type NodeConfig struct {
	// ID 节点标识
	// 为空时启动时签发随机标识
	ID string `json:"id,omitempty"`

	// ListenAddr 监听地址（host:port）
	// 为空表示纯客户端节点，不接受入站连接
	// 默认值: "127.0.0.1:0"
	ListenAddr string `json:"listen_addr"`

	// AdvertiseAddr 对外公告地址
	// 为空时使用实际监听地址
	AdvertiseAddr string `json:"advertise_addr,omitempty"`
}

// DefaultNodeConfig 返回默认节点配置
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ListenAddr: "127.0.0.1:0",
	}
}

// Validate 验证节点配置
func (c *NodeConfig) Validate() error {
	for _, addr := range []string{c.ListenAddr, c.AdvertiseAddr} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("node: invalid address %q: %w", addr, err)
		}
	}
	return nil
}
