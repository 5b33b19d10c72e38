package server

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-cns/config"
	"github.com/dep2p/go-cns/internal/core/metrics"
	"github.com/dep2p/go-cns/internal/core/storage"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
)

// Params 服务端模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	Host     pkgif.Host
	Store    storage.LeaseStore `optional:"true"`
	Reporter metrics.Reporter   `optional:"true"`
}

// Module 返回服务端 Fx 模块
//
// 节点启动后启动名称服务，节点停止前停止。
func Module() fx.Option {
	return fx.Module("cns-server",
		fx.Provide(ProvideServer),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideServer 提供服务端
func ProvideServer(p Params) (*Server, error) {
	return New(p.Host, p.Store, ConfigFromUnified(p.UnifiedCfg), WithReporter(p.Reporter))
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}
