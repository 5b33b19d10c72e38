package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 环境变量
const (
	EnvNodeID         = "CNS_NODE_ID"
	EnvListenAddr     = "CNS_LISTEN_ADDR"
	EnvAdvertiseAddr  = "CNS_ADVERTISE_ADDR"
	EnvServerEnable   = "CNS_SERVER_ENABLE"
	EnvServerAddrs    = "CNS_SERVER_ADDRS"
	EnvAdminPort      = "CNS_ADMIN_PORT"
	EnvRequestTimeout = "CNS_REQUEST_TIMEOUT"
	EnvStorageBackend = "CNS_STORAGE_BACKEND"
	EnvStoragePath    = "CNS_STORAGE_PATH"
	EnvMetricsAddr    = "CNS_METRICS_ADDR"
	EnvLogLevel       = "CNS_LOG_LEVEL"
	EnvLogFormat      = "CNS_LOG_FORMAT"
)

// ApplyEnv 用 CNS_* 环境变量覆盖配置
//
// 未设置的变量不影响对应字段。CNS_SERVER_ADDRS 以逗号分隔；
// 设置 CNS_STORAGE_PATH 时后端自动切换为 badger。
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvNodeID); ok {
		c.Node.ID = v
	}
	if v, ok := lookup(EnvListenAddr); ok {
		c.Node.ListenAddr = v
	}
	if v, ok := lookup(EnvAdvertiseAddr); ok {
		c.Node.AdvertiseAddr = v
	}
	if v, ok := lookup(EnvServerEnable); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvServerEnable, err)
		}
		c.Server.Enable = b
	}
	if v, ok := lookup(EnvServerAddrs); ok {
		c.Client.ServerAddrs = splitList(v)
		if len(c.Client.ServerAddrs) > 0 {
			c.Client.Enable = true
		}
	}
	if v, ok := lookup(EnvAdminPort); ok {
		port, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAdminPort, err)
		}
		c.Server.AdminPort = port
		c.Client.AdminPort = port
	}
	if v, ok := lookup(EnvRequestTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		c.Client.RequestTimeout = Duration(d)
	}
	if v, ok := lookup(EnvStorageBackend); ok {
		c.Storage.Backend = v
	}
	if v, ok := lookup(EnvStoragePath); ok {
		c.Storage.DataDir = v
		c.Storage.Backend = StorageBadger
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.Metrics.ListenAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Log.Format = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
