package service

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/dto"
)

func TestNotifier_CoalescesLatestRevision(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Publish(1)
	n.Publish(2)
	n.Publish(3)

	select {
	case rev := <-ch:
		if rev != 3 {
			t.Errorf("期望只保留最新版本 3，实际=%d", rev)
		}
	default:
		t.Fatal("未收到通知")
	}
	select {
	case rev := <-ch:
		t.Errorf("不应有积压通知，实际收到 %d", rev)
	default:
	}
}

func TestNotifier_Cancel(t *testing.T) {
	n := NewNotifier()
	_, cancel1 := n.Subscribe()
	_, cancel2 := n.Subscribe()
	if n.Subscribers() != 2 {
		t.Fatalf("期望 2 个订阅，实际=%d", n.Subscribers())
	}
	cancel1()
	cancel1()
	if n.Subscribers() != 1 {
		t.Errorf("重复 cancel 后期望 1 个订阅，实际=%d", n.Subscribers())
	}
	cancel2()
	n.Publish(5)
}

// countingImporter 记录 Sync 调用次数
type countingImporter struct {
	calls atomic.Int32
	err   error
}

func (c *countingImporter) ImportFile(context.Context, io.Reader, string) (*dto.ImportResponse, error) {
	return nil, nil
}

func (c *countingImporter) Sync(context.Context) (*dto.ImportResponse, error) {
	c.calls.Add(1)
	return nil, c.err
}

func (c *countingImporter) Status(context.Context) *dto.ImportStatusResponse {
	return &dto.ImportStatusResponse{}
}

func TestSyncScheduler_RunsUntilCancelled(t *testing.T) {
	imp := &countingImporter{err: ErrImportBusy}
	sched := NewSyncScheduler(imp, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for imp.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("定时同步未按周期执行，调用次数=%d", imp.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ctx 取消后 Run 未退出")
	}
}
