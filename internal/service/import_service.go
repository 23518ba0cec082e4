package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
)

// ── 导入模块业务错误 ──

var (
	ErrImportBusy     = errors.New("已有导入任务正在执行")
	ErrImportNoSource = errors.New("未配置课表同步地址")
)

// 跨实例导入锁名
const importLockName = "import"

// SourceFetcher 远程课表获取
type SourceFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*ingest.Source, error)
}

// ImportLock 跨实例互斥（Redis SET NX PX）
type ImportLock interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// ImportCache 最近一次成功导入结果缓存
type ImportCache interface {
	SaveLastImport(ctx context.Context, payload []byte) error
	LoadLastImport(ctx context.Context) ([]byte, error)
}

// ── ImportService 接口 ──────────────────────────────────────
//
//   - 导入采用全量替换：解析成功后一次性 ReplaceAll，解析失败不影响现有数据
//   - 同一时间只允许一个导入任务（进程内标志 + 可选的 Redis 锁）
//   - 定时同步的数据源不可用且当前课表为空时，从缓存恢复上一次导入结果
// ─────────────────────────────────────────────────────────────

// ImportService 课表导入业务接口
type ImportService interface {
	// ImportFile 导入上传的 CSV/XLSX 文件
	ImportFile(ctx context.Context, r io.Reader, filename string) (*dto.ImportResponse, error)
	// Sync 从 ingest.source_url 拉取并导入
	Sync(ctx context.Context) (*dto.ImportResponse, error)
	// Status 最近一次导入状态
	Status(ctx context.Context) *dto.ImportStatusResponse
}

type importStatus struct {
	lastRunAt  time.Time
	lastSource string
	lastCount  int
	lastError  string
}

type importService struct {
	cfg      config.IngestConfig
	repo     *repository.Repository
	fetcher  SourceFetcher
	lock     ImportLock
	cache    ImportCache
	notifier *Notifier
	logger   *zap.Logger
	now      func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	status  importStatus
}

// NewImportService 创建 ImportService 实例；lock、cache 为 nil 时对应功能关闭
func NewImportService(
	cfg config.IngestConfig,
	repo *repository.Repository,
	fetcher SourceFetcher,
	lock ImportLock,
	cache ImportCache,
	notifier *Notifier,
	logger *zap.Logger,
) ImportService {
	return &importService{
		cfg:      cfg,
		repo:     repo,
		fetcher:  fetcher,
		lock:     lock,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *importService) ImportFile(ctx context.Context, r io.Reader, filename string) (*dto.ImportResponse, error) {
	release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := readLimited(r, s.cfg.MaxFileBytes)
	if err != nil {
		s.recordFailure(filename, err)
		return nil, err
	}

	resp, err := s.apply(ctx, data, filename)
	if err != nil {
		s.recordFailure(filename, err)
		return nil, err
	}
	return resp, nil
}

func (s *importService) Sync(ctx context.Context) (*dto.ImportResponse, error) {
	if s.cfg.SourceURL == "" {
		return nil, ErrImportNoSource
	}

	release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	src, err := s.fetcher.Fetch(ctx, s.cfg.SourceURL)
	if err != nil {
		s.recordFailure(s.cfg.SourceURL, err)
		if resp, ok := s.restoreFromCache(ctx, err); ok {
			return resp, nil
		}
		return nil, err
	}

	resp, err := s.apply(ctx, src.Data, src.Name)
	if err != nil {
		s.recordFailure(src.Name, err)
		return nil, err
	}
	return resp, nil
}

func (s *importService) Status(_ context.Context) *dto.ImportStatusResponse {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	resp := &dto.ImportStatusResponse{
		Running:    s.running.Load(),
		LastSource: st.lastSource,
		LastCount:  st.lastCount,
		LastError:  st.lastError,
		SourceURL:  s.cfg.SourceURL,
	}
	if !st.lastRunAt.IsZero() {
		t := st.lastRunAt
		resp.LastRunAt = &t
	}
	if s.cfg.SourceURL != "" && s.cfg.SyncInterval > 0 {
		resp.SyncInterval = s.cfg.SyncInterval.String()
		if !st.lastRunAt.IsZero() {
			next := st.lastRunAt.Add(s.cfg.SyncInterval)
			resp.NextSyncAfter = &next
		}
	}
	return resp
}

// ────────────────────── 内部流程 ──────────────────────

// begin 获取进程内与跨实例的导入权，返回释放函数
func (s *importService) begin(ctx context.Context) (func(), error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrImportBusy
	}

	if s.lock == nil {
		return func() { s.running.Store(false) }, nil
	}

	token, ok, err := s.lock.AcquireLock(ctx, importLockName, s.cfg.LockTTL)
	switch {
	case err != nil:
		// Redis 不可用时退化为仅进程内互斥
		s.logger.Warn("获取导入锁失败，仅使用进程内互斥", zap.Error(err))
		return func() { s.running.Store(false) }, nil
	case !ok:
		s.running.Store(false)
		return nil, ErrImportBusy
	}

	return func() {
		// 导入可能因 ctx 取消而结束，释放锁使用独立的 ctx
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.ReleaseLock(releaseCtx, importLockName, token); err != nil {
			s.logger.Warn("释放导入锁失败", zap.Error(err))
		}
		s.running.Store(false)
	}, nil
}

// apply 解析并整体替换课表
func (s *importService) apply(ctx context.Context, data []byte, source string) (*dto.ImportResponse, error) {
	table, err := ingest.ReadTable(bytes.NewReader(data), source)
	if err != nil {
		return nil, err
	}

	sessions, err := ingest.Ingest(table, ingest.Options{RoomPrefix: s.cfg.RoomPrefix})
	if err != nil {
		s.logger.Warn("课表解析失败", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	if err := s.repo.Session.ReplaceAll(ctx, sessions); err != nil {
		s.logger.Error("写入课表失败", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)
	s.saveToCache(ctx, sessions)
	s.recordSuccess(source, len(sessions))

	s.logger.Info("课表导入完成",
		zap.String("source", source),
		zap.Int("rows", len(table)-1),
		zap.Int("imported", len(sessions)),
	)

	return &dto.ImportResponse{
		ImportedCount: len(sessions),
		Source:        source,
		Sessions:      sessions,
	}, nil
}

func (s *importService) saveToCache(ctx context.Context, sessions []model.ClassSession) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(sessions)
	if err != nil {
		s.logger.Warn("序列化导入缓存失败", zap.Error(err))
		return
	}
	if err := s.cache.SaveLastImport(ctx, payload); err != nil {
		s.logger.Warn("写入导入缓存失败", zap.Error(err))
	}
}

// restoreFromCache 数据源不可用且当前课表为空时恢复缓存，返回是否已恢复
func (s *importService) restoreFromCache(ctx context.Context, cause error) (*dto.ImportResponse, bool) {
	if s.cache == nil || !errors.Is(cause, ingest.ErrSourceUnavailable) {
		return nil, false
	}

	current, err := s.repo.Session.List(ctx)
	if err != nil || len(current) > 0 {
		return nil, false
	}

	payload, err := s.cache.LoadLastImport(ctx)
	if err != nil {
		s.logger.Warn("读取导入缓存失败", zap.Error(err))
		return nil, false
	}
	if len(payload) == 0 {
		return nil, false
	}

	var sessions []model.ClassSession
	if err := json.Unmarshal(payload, &sessions); err != nil {
		s.logger.Warn("导入缓存内容无效", zap.Error(err))
		return nil, false
	}
	if len(sessions) == 0 {
		return nil, false
	}

	if err := s.repo.Session.ReplaceAll(ctx, sessions); err != nil {
		s.logger.Error("从缓存恢复课表失败", zap.Error(err))
		return nil, false
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)

	s.logger.Warn("课表数据源不可用，已从缓存恢复",
		zap.Int("restored", len(sessions)),
		zap.Error(cause),
	)
	return &dto.ImportResponse{
		ImportedCount: len(sessions),
		Source:        "cache",
		Sessions:      sessions,
		Restored:      true,
		Warning:       cause.Error(),
	}, true
}

func (s *importService) recordSuccess(source string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = importStatus{lastRunAt: s.now(), lastSource: source, lastCount: count}
}

func (s *importService) recordFailure(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.lastRunAt = s.now()
	s.status.lastSource = source
	s.status.lastError = err.Error()
}

// readLimited 读取上传内容，超过 limit 字节时报错（limit<=0 不限制）
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrUnreadableTable, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: 文件超过 %d 字节", ingest.ErrUnreadableTable, limit)
	}
	return data, nil
}
