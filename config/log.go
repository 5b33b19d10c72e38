package config

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-cns/pkg/lib/log"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别规格，格式同 CNS_LOG_LEVEL
	// 例如 "info" 或 "cns/server=debug,warn"
	// 默认值: "info"
	Level string `json:"level"`

	// Format 输出格式: "text" 或 "json"
	// 默认值: "text"
	Format string `json:"format"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	for _, part := range strings.Split(c.Level, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, level, ok := strings.Cut(part, "="); ok {
			part = strings.TrimSpace(level)
		}
		if _, ok := log.ParseLevel(part); !ok {
			return fmt.Errorf("log: unknown level %q", part)
		}
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
}

// ToLogConfig 转换为 pkg/lib/log 的配置
func (c *LogConfig) ToLogConfig() *log.Config {
	cfg := log.DefaultConfig()
	if c.Level != "" {
		log.ParseLevelSpec(cfg, c.Level)
	}
	if c.Format != "" {
		cfg.Format = log.ParseFormat(c.Format)
	}
	return cfg
}
