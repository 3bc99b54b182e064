package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/model"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/untis"
)

// ── 手写 Mock：仅覆盖测试需要的行为 ──
//
// 预取 worker 与前台请求并发访问同一批 mock，
// 所有 mock 都必须加锁。

// mockSnapshotRepo 内存快照存储
type mockSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []model.CachedSchedule
	createErr error

	deleteOlderCutoff time.Time
	deleteOlderCalled bool
	pruneHistoryKeep  int
	pruneCalled       bool
}

func (m *mockSnapshotRepo) GetFresh(_ context.Context, ownerID string, rangeStart time.Time, rangeEnd *time.Time, notBefore time.Time) (*model.CachedSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *model.CachedSchedule
	for i := range m.snapshots {
		s := &m.snapshots[i]
		if s.OwnerID != ownerID || !s.RangeStart.Equal(rangeStart) {
			continue
		}
		if (s.RangeEnd == nil) != (rangeEnd == nil) {
			continue
		}
		if rangeEnd != nil && !s.RangeEnd.Equal(*rangeEnd) {
			continue
		}
		if !s.CreatedAt.After(notBefore) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockSnapshotRepo) Create(_ context.Context, snapshot *model.CachedSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.snapshots = append(m.snapshots, *snapshot)
	return nil
}

func (m *mockSnapshotRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteOlderCalled = true
	m.deleteOlderCutoff = cutoff

	var kept []model.CachedSchedule
	var deleted int64
	for _, s := range m.snapshots {
		if s.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	m.snapshots = kept
	return deleted, nil
}

func (m *mockSnapshotRepo) PruneHistory(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneCalled = true
	m.pruneHistoryKeep = keep
	return 0, nil
}

func (m *mockSnapshotRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

// mockCredentialRepo 单 owner 凭据存储
type mockCredentialRepo struct {
	mu         sync.Mutex
	credential *model.Credential
}

func (m *mockCredentialRepo) GetByOwner(_ context.Context, ownerID string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credential == nil || m.credential.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.credential
	return &cp, nil
}

func (m *mockCredentialRepo) Upsert(_ context.Context, credential *model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = credential
	return nil
}

func (m *mockCredentialRepo) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credential != nil && m.credential.OwnerID == ownerID {
		m.credential = nil
	}
	return nil
}

// mockHomeworkRepo 记录 upsert 调用
type mockHomeworkRepo struct {
	mu          sync.Mutex
	upserted    []model.HomeworkRecord
	upsertErr   error
	deletedBefo time.Time
	deleteCount int
}

func (m *mockHomeworkRepo) UpsertBatch(_ context.Context, records []model.HomeworkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockHomeworkRepo) ListByOwnerAndDateRange(_ context.Context, _ string, _, _ int) ([]model.HomeworkRecord, error) {
	return nil, nil
}

func (m *mockHomeworkRepo) DeleteFetchedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedBefo = cutoff
	m.deleteCount++
	return 0, nil
}

// mockExamRepo 记录 upsert 调用
type mockExamRepo struct {
	mu          sync.Mutex
	upserted    []model.ExamRecord
	deleteCount int
}

func (m *mockExamRepo) UpsertBatch(_ context.Context, records []model.ExamRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockExamRepo) ListByOwnerAndDateRange(_ context.Context, _ string, _, _ int) ([]model.ExamRecord, error) {
	return nil, nil
}

func (m *mockExamRepo) DeleteFetchedBefore(_ context.Context, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCount++
	return 0, nil
}

// mockUserRepo 内存用户存储
type mockUserRepo struct {
	mu    sync.Mutex
	users []model.User
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		user.UserID = "33333333-3333-3333-3333-333333333333"
	}
	m.users = append(m.users, *user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].UserID == id {
			cp := m.users[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if strings.EqualFold(m.users[i].Username, username) {
			cp := m.users[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// fakeUpstream 可编程的上游客户端
type fakeUpstream struct {
	mu      sync.Mutex
	result  *untis.FetchResult
	err     error
	delay   time.Duration
	fetches []fetchCall
}

type fetchCall struct {
	creds untis.Credentials
	start time.Time
	end   time.Time
}

func (f *fakeUpstream) FetchRange(_ context.Context, creds untis.Credentials, start, end time.Time) (*untis.FetchResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, fetchCall{creds: creds, start: start, end: end})
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &untis.FetchResult{}, nil
}

// fetchCountFor 统计指定区间的回源次数
func (f *fakeUpstream) fetchCountFor(start time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fetches {
		if c.start.Equal(start) {
			n++
		}
	}
	return n
}

func (f *fakeUpstream) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}
