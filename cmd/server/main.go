package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/api/handler"
	"github.com/davimluiz/painelalunosvercel/internal/api/router"
	"github.com/davimluiz/painelalunosvercel/internal/bootstrap"
	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/jwt"
	applogger "github.com/davimluiz/painelalunosvercel/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml 与 ./config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 打开课表存储（postgres 时执行迁移）
	repo, closeStore, err := bootstrap.OpenRepository(cfg, logger)
	if err != nil {
		logger.Fatal("初始化存储失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：未配置或连接失败时降级运行）
	rdb := bootstrap.OpenRedis(&cfg.Redis, logger)

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, repo, jwtMgr, rdb, logger)
	h := handler.NewHandler(svc, logger)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, svc.Auth, rdb, logger)

	// 8. 定时同步（配置了 ingest.source_url 时）
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	syncDone := make(chan struct{})
	if cfg.Ingest.SourceURL != "" {
		scheduler := service.NewSyncScheduler(svc.Import, cfg.Ingest.SyncInterval, logger)
		go func() {
			defer close(syncDone)
			scheduler.Run(ctx)
		}()
	} else {
		close(syncDone)
		logger.Info("未配置 ingest.source_url，定时同步关闭")
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	// 上传导入可能较慢，WriteTimeout 不宜过短；WebSocket 连接 hijack 后不受其限制
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	stop()
	<-syncDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭存储与 Redis 连接
	closeStore()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
