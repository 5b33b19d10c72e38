package host

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-cns/config"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	// 配置
	UnifiedCfg *config.Config `optional:"true"`

	EventBus pkgif.EventBus
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Host pkgif.Host
}

// ProvideHost 提供 Host 服务
func ProvideHost(input ModuleInput) (ModuleOutput, error) {
	h, err := New(ConfigFromUnified(input.UnifiedCfg), input.EventBus)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Host: h}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("host",
		fx.Provide(ProvideHost),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput Lifecycle 注册输入
type lifecycleInput struct {
	fx.In
	LC   fx.Lifecycle
	Host pkgif.Host
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if h, ok := input.Host.(*Host); ok {
				return h.Start(ctx)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return input.Host.Close()
		},
	})
}
