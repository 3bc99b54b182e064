package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/repository"
)

// ── 快照清理 ──
//
// 清理不靠独立的定时任务基础设施，而是搭在正常请求路径上：
// 每次课表请求都会调用 MaybeRun，距上次清理超过配置间隔才真正
// 执行，其余调用立即返回。另有一个兜底 ticker 覆盖长时间无
// 请求的场景。清理失败只记日志，不影响任何前台请求。

// Pruner 按最小间隔执行快照与附属记录的清理
type Pruner struct {
	snapshots repository.SnapshotRepository
	homework  repository.HomeworkRepository
	exams     repository.ExamRepository

	interval         time.Duration
	maxAge           time.Duration
	maxHistory       int
	sideRecordMaxAge time.Duration

	logger *zap.Logger
	now    func() time.Time // 测试注入

	mu      sync.Mutex
	lastRun time.Time
	running bool
	started bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPruner 创建清理器；不启动后台循环，按需调用 Start
func NewPruner(repo *repository.Repository, cacheCfg *config.CacheConfig, pruneCfg *config.PruneConfig, logger *zap.Logger) *Pruner {
	return &Pruner{
		snapshots:        repo.Snapshot,
		homework:         repo.Homework,
		exams:            repo.Exam,
		interval:         pruneCfg.Interval,
		maxAge:           cacheCfg.MaxAge,
		maxHistory:       cacheCfg.MaxHistoryPerRange,
		sideRecordMaxAge: pruneCfg.SideRecordMaxAge,
		logger:           logger,
		now:              time.Now,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// MaybeRun 距上次清理超过间隔时执行一轮清理，否则立即返回 false
// 并发调用安全：同一时刻最多一轮清理在执行。调用方若不希望
// 阻塞（如请求路径），应在独立协程中调用。
func (p *Pruner) MaybeRun() bool {
	p.mu.Lock()
	now := p.now()
	if p.running || now.Sub(p.lastRun) < p.interval {
		p.mu.Unlock()
		return false
	}
	p.running = true
	p.lastRun = now
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()
	p.runOnce()
	return true
}

// Start 启动兜底定时循环，覆盖长时间无请求的场景
func (p *Pruner) Start() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.MaybeRun()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop 停止兜底循环；不等待在途清理（清理操作本身是幂等的）
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}

// runOnce 执行一轮完整清理
// 三个步骤相互独立，任一失败不阻断后续步骤。
func (p *Pruner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := p.now()

	// 步骤一：删除超过最大保留时长的快照
	if deleted, err := p.snapshots.DeleteOlderThan(ctx, now.Add(-p.maxAge)); err != nil {
		p.logger.Error("过期快照清理失败", zap.Error(err))
	} else if deleted > 0 {
		p.logger.Info("过期快照已清理", zap.Int64("deleted", deleted))
	}

	// 步骤二：每个区间键只保留最新 N 条历史
	if deleted, err := p.snapshots.PruneHistory(ctx, p.maxHistory); err != nil {
		p.logger.Error("快照历史收缩失败", zap.Error(err))
	} else if deleted > 0 {
		p.logger.Info("快照历史已收缩", zap.Int64("deleted", deleted))
	}

	// 步骤三（可选）：清理长期未再抓取到的作业/考试记录
	if p.sideRecordMaxAge > 0 {
		cutoff := now.Add(-p.sideRecordMaxAge)
		if deleted, err := p.homework.DeleteFetchedBefore(ctx, cutoff); err != nil {
			p.logger.Error("作业记录清理失败", zap.Error(err))
		} else if deleted > 0 {
			p.logger.Info("陈旧作业记录已清理", zap.Int64("deleted", deleted))
		}
		if deleted, err := p.exams.DeleteFetchedBefore(ctx, cutoff); err != nil {
			p.logger.Error("考试记录清理失败", zap.Error(err))
		} else if deleted > 0 {
			p.logger.Info("陈旧考试记录已清理", zap.Int64("deleted", deleted))
		}
	}
}
