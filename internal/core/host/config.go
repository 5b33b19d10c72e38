package host

import (
	"errors"

	"github.com/dep2p/go-cns/config"
	"github.com/dep2p/go-cns/internal/core/link"
	"github.com/dep2p/go-cns/internal/core/transport/tcp"
	"github.com/dep2p/go-cns/pkg/types"
)

// DynamicPortBase 动态端口起点；小于该值的端口保留给知名服务
const DynamicPortBase uint64 = 1024

// Config Host 配置
type Config struct {
	// ID 节点标识；为空时自动签发
	ID types.NodeID

	// ListenAddr 监听地址；为空表示不接受入站连接
	ListenAddr string

	// AdvertiseAddr 对外公告地址；为空时使用实际监听地址
	AdvertiseAddr string

	// Link 链路配置
	Link link.Config

	// Transport TCP 传输配置
	Transport tcp.Config
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ListenAddr: "127.0.0.1:0",
		Link:       link.DefaultConfig(),
		Transport:  tcp.DefaultConfig(),
	}
}

// ConfigFromUnified 从统一配置创建 Host 配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		ID:            types.NodeID(cfg.Node.ID),
		ListenAddr:    cfg.Node.ListenAddr,
		AdvertiseAddr: cfg.Node.AdvertiseAddr,
		Link: link.Config{
			ProtocolID:       cfg.Transport.ProtocolID,
			HandshakeTimeout: cfg.Transport.HandshakeTimeout.Duration(),
			SendQueueSize:    cfg.Transport.SendQueueSize,
		},
		Transport: tcp.Config{
			DialTimeout: cfg.Transport.DialTimeout.Duration(),
			KeepAlive:   cfg.Transport.KeepAlive.Duration(),
			NoDelay:     true,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Link.SendQueueSize < 0 {
		return errors.New("host: send queue size cannot be negative")
	}
	return nil
}
