package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/repository"
)

// Notifier 进程内数据变更广播
//
// 每个订阅者持有容量为 1 的通道，只保留最新版本号；
// 订阅者消费慢时旧通知被覆盖，Publish 永不阻塞。
type Notifier struct {
	mu   sync.Mutex
	subs map[chan int64]struct{}
}

// NewNotifier 创建 Notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan int64]struct{})}
}

// Subscribe 订阅变更，返回的 cancel 必须调用以释放订阅
func (n *Notifier) Subscribe() (<-chan int64, func()) {
	ch := make(chan int64, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
		})
	}
}

// Publish 向所有订阅者广播最新版本号
func (n *Notifier) Publish(revision int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case <-ch:
		default:
		}
		ch <- revision
	}
}

// Subscribers 当前订阅数
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// publishRevision 写操作成功后读取最新版本并广播；读取失败只记录日志
func publishRevision(ctx context.Context, repo *repository.Repository, notifier *Notifier, logger *zap.Logger) {
	if notifier == nil {
		return
	}
	rev, err := repo.Session.Revision(ctx)
	if err != nil {
		logger.Warn("读取数据版本失败，跳过变更通知", zap.Error(err))
		return
	}
	notifier.Publish(rev)
}
