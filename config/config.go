// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载、保存，以及 CNS_* 环境变量覆盖
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Node.ListenAddr = "0.0.0.0:7000"
//	cfg.Server.Enable = true
//
//	// 从文件加载，再叠加环境变量
//	cfg, err := config.LoadFile("cns.json")
//	if err == nil {
//	    err = cfg.ApplyEnv()
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config 是 CNS 节点的完整配置结构
//
// 配置按照功能模块组织：
//   - Node: 节点身份与监听地址
//   - Transport: 链路传输（拨号、握手、发送队列）
//   - Server: 名称服务端
//   - Client: 名称服务客户端代理
//   - Storage: 租约持久化
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Node 节点配置
	Node NodeConfig `json:"node"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Server 服务端配置
	Server ServerConfig `json:"server"`

	// Client 客户端配置
	Client ClientConfig `json:"client"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Node:      DefaultNodeConfig(),
		Transport: DefaultTransportConfig(),
		Server:    DefaultServerConfig(),
		Client:    DefaultClientConfig(),
		Storage:   DefaultStorageConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置，返回第一个发现的错误。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	validators := []interface{ Validate() error }{
		&c.Node, &c.Transport, &c.Server, &c.Client, &c.Storage, &c.Metrics, &c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if !c.Server.Enable && len(c.Client.ServerAddrs) == 0 && c.Client.Enable {
		return fmt.Errorf("client: server_addrs required when server is not enabled")
	}
	return nil
}

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保持默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 将配置序列化为缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
