package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
)

func TestPrefetcher_ExecutesEnqueuedTasks(t *testing.T) {
	var mu sync.Mutex
	var got []string

	p := NewPrefetcher(&config.PrefetchConfig{QueueSize: 4, Workers: 2},
		func(_ context.Context, ownerID string, _, _ time.Time) error {
			mu.Lock()
			got = append(got, ownerID)
			mu.Unlock()
			return nil
		}, zap.NewNop())

	if !p.Enqueue("owner-a", fixedNow, fixedNow) {
		t.Fatal("空队列投递应成功")
	}
	if !p.Enqueue("owner-b", fixedNow, fixedNow) {
		t.Fatal("空队列投递应成功")
	}
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Errorf("两个任务都应被执行, 实际执行 %d 个", len(got))
	}
}

func TestPrefetcher_DropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	p := NewPrefetcher(&config.PrefetchConfig{QueueSize: 1, Workers: 1},
		func(_ context.Context, _ string, _, _ time.Time) error {
			started <- struct{}{}
			<-release
			return nil
		}, zap.NewNop())

	// 第一条被 worker 取走并阻塞，第二条占满队列，第三条必须被丢弃
	p.Enqueue("a", fixedNow, fixedNow)
	<-started
	if !p.Enqueue("b", fixedNow, fixedNow) {
		t.Fatal("队列尚有空位, 投递应成功")
	}
	if p.Enqueue("c", fixedNow, fixedNow) {
		t.Error("队列已满, 投递应被丢弃")
	}

	close(release)
	p.Close()
}

func TestPrefetcher_ErrorsAreSwallowed(t *testing.T) {
	var calls atomic.Int32

	p := NewPrefetcher(&config.PrefetchConfig{QueueSize: 4, Workers: 1},
		func(_ context.Context, _ string, _, _ time.Time) error {
			calls.Add(1)
			return errors.New("upstream down")
		}, zap.NewNop())

	p.Enqueue("a", fixedNow, fixedNow)
	p.Enqueue("b", fixedNow, fixedNow)
	p.Close()

	// 失败不影响后续任务的执行
	if calls.Load() != 2 {
		t.Errorf("任务失败后 worker 应继续消费, 期望 2 次调用, 实际 %d", calls.Load())
	}
}

func TestPrefetcher_PanicDoesNotKillWorker(t *testing.T) {
	var calls atomic.Int32

	p := NewPrefetcher(&config.PrefetchConfig{QueueSize: 4, Workers: 1},
		func(_ context.Context, ownerID string, _, _ time.Time) error {
			calls.Add(1)
			if ownerID == "bad" {
				panic("boom")
			}
			return nil
		}, zap.NewNop())

	p.Enqueue("bad", fixedNow, fixedNow)
	p.Enqueue("good", fixedNow, fixedNow)
	p.Close()

	if calls.Load() != 2 {
		t.Errorf("panic 被吞掉后 worker 应继续, 期望 2 次调用, 实际 %d", calls.Load())
	}
}

func TestPrefetcher_CloseIsIdempotent(t *testing.T) {
	p := NewPrefetcher(&config.PrefetchConfig{QueueSize: 1, Workers: 1},
		func(_ context.Context, _ string, _, _ time.Time) error { return nil },
		zap.NewNop())

	p.Close()
	p.Close() // 第二次关闭不应 panic
}
