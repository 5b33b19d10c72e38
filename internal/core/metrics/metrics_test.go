package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-cns/config"
)

// TestPrometheusReporter 测试指标更新
func TestPrometheusReporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusReporter(reg)
	require.NoError(t, err)

	r.SetTables(TableSizes{Bindings: 3, Leases: 1, Pending: 2, Sessions: 4})
	r.RequestHandled("register")
	r.RequestHandled("register")
	r.RequestRejected("lease")
	r.LinkLost()
	r.HandlerPanic()
	r.ReplyDropped()
	r.ReplyDropped()

	assert.Equal(t, 3.0, promtest.ToFloat64(r.bindings))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.leases))
	assert.Equal(t, 2.0, promtest.ToFloat64(r.pending))
	assert.Equal(t, 4.0, promtest.ToFloat64(r.sessions))
	assert.Equal(t, 2.0, promtest.ToFloat64(r.requests.WithLabelValues("register")))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.rejected.WithLabelValues("lease")))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.linkLost))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.panics))
	assert.Equal(t, 2.0, promtest.ToFloat64(r.dropped))

	// 重复注册失败
	_, err = NewPrometheusReporter(reg)
	assert.Error(t, err)
}

// TestModule 测试 Fx 模块
func TestModule(t *testing.T) {
	reg := prometheus.NewRegistry()

	var reporter Reporter
	app := fxtest.New(t,
		Module(),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fx.Populate(&reporter),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.IsType(t, &PrometheusReporter{}, reporter)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

// TestModule_Disabled 测试关闭指标
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enable = false

	var reporter Reporter
	app := fxtest.New(t,
		Module(),
		fx.Supply(cfg),
		fx.Populate(&reporter),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, Nop, reporter)
}
