package cns

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-cns/internal/cns/client"
	"github.com/dep2p/go-cns/internal/cns/server"
	"github.com/dep2p/go-cns/internal/core/eventbus"
	"github.com/dep2p/go-cns/internal/core/host"
	"github.com/dep2p/go-cns/internal/core/metrics"
	"github.com/dep2p/go-cns/internal/core/storage"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. EventBus → Host
//  2. Storage → Metrics → Server（config.Server.Enable）
//  3. Client（config.Client.Enable），排在 Server 之后，使同节点的服务端先启动
func buildFxApp(o *options, node *Node) (*fx.App, error) {
	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
		eventbus.Module(),
		host.Module(),
		fx.Invoke(func(h pkgif.Host) { node.host = h }),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 名称服务端
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Server.Enable {
		modules = append(modules, storage.Module())
		if cfg.Metrics.Enable {
			// 未指定注册器时每个节点使用独立注册表，同进程多节点不会冲突
			reg := o.registerer
			if reg == nil {
				reg = prometheus.NewRegistry()
			}
			modules = append(modules,
				fx.Provide(func() prometheus.Registerer { return reg }),
				metrics.Module(),
			)
		}
		modules = append(modules,
			server.Module(),
			fx.Invoke(func(s *server.Server) { node.server = s }),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 客户端代理
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Client.Enable {
		modules = append(modules,
			client.Module(),
			fx.Invoke(func(p *client.Proxy) { node.proxy = p }),
		)
	}

	modules = append(modules, o.fxOptions...)

	// 禁用 Fx 日志输出（避免干扰组件日志）
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}
