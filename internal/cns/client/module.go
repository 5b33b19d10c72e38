package client

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-cns/config"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
)

// Params 客户端模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Host       pkgif.Host
}

// Module 返回客户端 Fx 模块
//
// 启动时登录名称服务并设为默认代理，停止时清除并关闭。
// 需要排在服务端模块之后，使同节点的服务端先于代理启动。
func Module() fx.Option {
	return fx.Module("cns-client",
		fx.Provide(ProvideProxy),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideProxy 提供客户端代理
func ProvideProxy(p Params) (*Proxy, error) {
	return New(p.Host, ConfigFromUnified(p.UnifiedCfg))
}

func registerLifecycle(lc fx.Lifecycle, p *Proxy) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Init(ctx); err != nil {
				return err
			}
			SetDefault(p)
			return nil
		},
		OnStop: func(_ context.Context) error {
			ClearDefault(p)
			return p.Close()
		},
	})
}
