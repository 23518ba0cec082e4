package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SyncScheduler 定时从 ingest.source_url 同步课表
//
// 单 goroutine 串行执行，上一次同步未结束时到期的 tick 被丢弃，不会重叠；
// 与手动导入冲突（ErrImportBusy）时本轮跳过。
type SyncScheduler struct {
	importer ImportService
	interval time.Duration
	logger   *zap.Logger
}

// NewSyncScheduler 创建定时同步器
func NewSyncScheduler(importer ImportService, interval time.Duration, logger *zap.Logger) *SyncScheduler {
	return &SyncScheduler{importer: importer, interval: interval, logger: logger}
}

// Run 立即同步一次，之后按周期同步，直到 ctx 取消
func (s *SyncScheduler) Run(ctx context.Context) {
	s.logger.Info("定时同步已启动", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("定时同步已停止")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	resp, err := s.importer.Sync(ctx)
	switch {
	case err == nil:
		if resp.Restored {
			s.logger.Warn("定时同步：数据源不可用，已使用缓存", zap.String("warning", resp.Warning))
			return
		}
		s.logger.Debug("定时同步完成", zap.Int("imported", resp.ImportedCount))
	case errors.Is(err, ErrImportBusy):
		s.logger.Debug("定时同步跳过：已有导入任务正在执行")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Warn("定时同步失败", zap.Error(err))
	}
}
