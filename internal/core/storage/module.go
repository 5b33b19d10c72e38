package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-cns/config"
)

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result Storage 模块提供的结果
type Result struct {
	fx.Out

	Store LeaseStore
}

// Module 返回 Storage Fx 模块
//
// 提供 LeaseStore；OnStop 时关闭存储。
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 提供租约存储
func ProvideStorage(p Params) (Result, error) {
	store, err := Open(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Result{}, err
	}
	return Result{Store: store}, nil
}

// Open 按配置打开租约存储
func Open(cfg Config) (LeaseStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == config.StorageBadger {
		logger.Info("打开租约存储", "path", cfg.Path, "inMemory", cfg.InMemory)
		return NewBadgerStore(cfg)
	}
	return NewMemoryStore(), nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, store LeaseStore) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := store.Close(); err != nil {
				logger.Warn("租约存储关闭失败", "error", err)
				return err
			}
			return nil
		},
	})
}
