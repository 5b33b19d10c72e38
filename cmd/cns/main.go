// Package main 提供名称服务守护进程入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cns "github.com/dep2p/go-cns"
	"github.com/dep2p/go-cns/config"
	"github.com/dep2p/go-cns/pkg/lib/log"
)

var logger = log.Logger("cns/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 配置优先级（从高到低）：命令行参数 > CNS_* 环境变量 > 配置文件 > 默认值
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径（JSON）")
	listenAddr  = flag.String("listen", "", "监听地址，例如 0.0.0.0:7300")
	storagePath = flag.String("storage", "", "租约数据目录（设置后使用 badger 持久化）")
	metricsAddr = flag.String("metrics", "", "/metrics HTTP 端点地址，例如 127.0.0.1:9300")
	logLevel    = flag.String("log-level", "", "日志级别，例如 info 或 cns/server=debug,info")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

// shutdownTimeout HTTP 服务优雅关闭的最长等待
const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("cns %s\n", cns.Version)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	log.Setup(os.Stderr, cfg.Log.ToLogConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger.Info("启动名称服务", "version", cns.Version)
	node, err := cns.StartServer(ctx, cns.WithConfig(cfg), cns.WithMetricsRegisterer(reg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	fmt.Printf("名称服务已启动\n  节点: %s\n  地址: %s\n", node.ID(), node.Addr())
	fmt.Println("按 Ctrl+C 退出")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enable && cfg.Metrics.ListenAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("指标端点已启动", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	fmt.Println("\n正在关闭名称服务...")
	return err
}

// loadConfig 加载配置：文件 → 环境变量 → 命令行参数
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.Server.Enable = true
	if *listenAddr != "" {
		cfg.Node.ListenAddr = *listenAddr
	}
	if *storagePath != "" {
		cfg.Storage.Backend = config.StorageBadger
		cfg.Storage.DataDir = *storagePath
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enable = true
		cfg.Metrics.ListenAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if cfg.Node.ListenAddr == "" {
		return nil, errors.New("名称服务必须监听地址（-listen）")
	}
	return cfg, cfg.Validate()
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
