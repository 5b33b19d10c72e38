package cns

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-cns/config"
)

// Option 节点选项
type Option func(*options) error

// options 内部选项
type options struct {
	config     *config.Config
	registerer prometheus.Registerer
	fxOptions  []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置（覆盖之前的选项）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		o.config = cfg
		return nil
	}
}

// WithNodeID 指定节点标识
func WithNodeID(id string) Option {
	return func(o *options) error {
		o.config.Node.ID = id
		return nil
	}
}

// WithListenAddr 设置监听地址；空字符串表示纯客户端节点
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.config.Node.ListenAddr = addr
		return nil
	}
}

// WithServer 是否在本节点运行名称服务端
func WithServer(enable bool) Option {
	return func(o *options) error {
		o.config.Server.Enable = enable
		return nil
	}
}

// WithClient 是否在本节点运行客户端代理
func WithClient(enable bool) Option {
	return func(o *options) error {
		o.config.Client.Enable = enable
		return nil
	}
}

// WithServerAddrs 设置名称服务地址（并启用客户端代理）
func WithServerAddrs(addrs ...string) Option {
	return func(o *options) error {
		o.config.Client.Enable = true
		o.config.Client.ServerAddrs = append([]string(nil), addrs...)
		return nil
	}
}

// WithStorage 设置租约存储后端与数据目录
func WithStorage(backend, dataDir string) Option {
	return func(o *options) error {
		o.config.Storage.Backend = backend
		if dataDir != "" {
			o.config.Storage.DataDir = dataDir
		}
		return nil
	}
}

// WithMetricsRegisterer 设置 Prometheus 注册器
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
