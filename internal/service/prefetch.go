package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
)

// ── 相邻周预取 ──
//
// 缓存未命中触发拉取并落库后，把前一周/后一周的区间投递到
// 有界任务队列，由固定数量的 worker 消费。队列满直接丢弃：
// 预取只是优化，丢任务无害，下次请求会正常回源。
// 所有预取错误就地吞掉并记日志，绝不冒泡到任何前台调用方。

// prefetchTask 一次预取任务：owner + 已规范化的区间
type prefetchTask struct {
	ownerID string
	start   time.Time
	end     time.Time
}

// PrefetchFunc 预取执行函数：检查新鲜度、必要时回源落库
type PrefetchFunc func(ctx context.Context, ownerID string, start, end time.Time) error

// Prefetcher 有界队列 + worker 池
type Prefetcher struct {
	tasks   chan prefetchTask
	delay   time.Duration
	timeout time.Duration
	fetch   PrefetchFunc
	logger  *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPrefetcher 创建预取器并启动 worker
func NewPrefetcher(cfg *config.PrefetchConfig, fetch PrefetchFunc, logger *zap.Logger) *Prefetcher {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}

	p := &Prefetcher{
		tasks:   make(chan prefetchTask, queueSize),
		delay:   cfg.Delay,
		timeout: 60 * time.Second,
		fetch:   fetch,
		logger:  logger,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Enqueue 非阻塞投递一个预取任务；队列满时丢弃并返回 false
func (p *Prefetcher) Enqueue(ownerID string, start, end time.Time) bool {
	select {
	case p.tasks <- prefetchTask{ownerID: ownerID, start: start, end: end}:
		return true
	default:
		p.logger.Warn("预取队列已满，丢弃任务",
			zap.String("ownerID", ownerID),
			zap.Time("rangeStart", start),
		)
		return false
	}
}

// Close 停止接收新任务并等待在途任务完成
// 进程关闭时丢掉在途预取是安全的：下次请求会重新拉取。
func (p *Prefetcher) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

func (p *Prefetcher) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		// 轻微延迟，避免与触发预取的前台响应争抢资源
		if p.delay > 0 {
			time.Sleep(p.delay)
		}
		p.run(task)
	}
}

func (p *Prefetcher) run(task prefetchTask) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("预取任务 panic", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.fetch(ctx, task.ownerID, task.start, task.end); err != nil {
		p.logger.Info("预取失败（已忽略）",
			zap.String("ownerID", task.ownerID),
			zap.Time("rangeStart", task.start),
			zap.Error(err),
		)
	}
}

