// Package bootstrap 组装各入口（HTTP 服务、命令行工具）共用的存储与 Redis 依赖
package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
	"github.com/davimluiz/painelalunosvercel/pkg/database"
	"github.com/davimluiz/painelalunosvercel/pkg/redis"
)

// OpenRepository 按 store.driver 打开存储，返回的 closer 释放底层连接
//
//   - postgres: 连接数据库并执行迁移
//   - memory:   加载 store.file_path 指向的 JSON 文件（不存在时从空开始）
func OpenRepository(cfg *config.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.NewDB(&cfg.DB, cfg.Log.Level, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("数据库连接失败: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		logger.Info("课表存储已就绪", zap.String("driver", "postgres"))
		return repository.NewRepository(db), func() { sqlDB.Close() }, nil

	case "memory":
		repo, err := repository.NewMemoryRepository(cfg.Store.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("加载课表文件失败: %w", err)
		}
		logger.Info("课表存储已就绪", zap.String("driver", "memory"), zap.String("file", cfg.Store.FilePath))
		return repo, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("不支持的存储类型: %q", cfg.Store.Driver)
	}
}

// OpenRedis 连接 Redis；未配置或连接失败时返回 nil，调用方降级运行
func OpenRedis(cfg *config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("未配置 Redis，导入锁、导入缓存、登录限流与 Token 黑名单不可用")
		return nil
	}
	rdb, err := redis.NewClient(cfg, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		return nil
	}
	return rdb
}
