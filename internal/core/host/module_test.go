package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-cns/config"
	"github.com/dep2p/go-cns/internal/core/eventbus"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
)

// TestModule_Lifecycle 测试 Fx 模块装配与生命周期
func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Node.ID = "module-node"

	var h pkgif.Host
	app := fxtest.New(t,
		fx.Supply(cfg),
		eventbus.Module(),
		Module(),
		fx.Populate(&h),
	)
	app.RequireStart()

	assert.Equal(t, "module-node", h.ID().String())
	assert.NotEmpty(t, h.Addr())

	app.RequireStop()
	assert.ErrorIs(t, h.(*Host).Start(context.Background()), ErrHostClosed)
}
