package config

import (
	"errors"
	"time"
)

// TransportConfig 链路传输配置
type TransportConfig struct {
	// ProtocolID 链路握手协议标识
	// 默认值: "/cns/link/1.0.0"
	ProtocolID string `json:"protocol_id"`

	// DialTimeout 拨号超时
	// 默认值: 10s
	DialTimeout Duration `json:"dial_timeout"`

	// HandshakeTimeout 握手超时
	// 默认值: 10s
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// KeepAlive TCP keepalive 周期
	// 默认值: 30s
	KeepAlive Duration `json:"keep_alive"`

	// SendQueueSize 每条链路的发送队列长度
	// 默认值: 256
	SendQueueSize int `json:"send_queue_size"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ProtocolID:       "/cns/link/1.0.0",
		DialTimeout:      Duration(10 * time.Second),
		HandshakeTimeout: Duration(10 * time.Second),
		KeepAlive:        Duration(30 * time.Second),
		SendQueueSize:    256,
	}
}

// Validate 验证传输配置
func (c *TransportConfig) Validate() error {
	if c.ProtocolID == "" {
		return errors.New("transport: protocol_id cannot be empty")
	}
	if c.DialTimeout < 0 || c.HandshakeTimeout < 0 || c.KeepAlive < 0 {
		return errors.New("transport: timeouts cannot be negative")
	}
	if c.SendQueueSize <= 0 {
		return errors.New("transport: send_queue_size must be positive")
	}
	return nil
}
