package service

import (
	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/repository"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/jwt"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/redis"
)

// Service 所有业务服务的聚合入口
type Service struct {
	Auth       AuthService
	Credential CredentialService
	Timetable  TimetableService
	Export     ExportService
	Pruner     *Pruner
}

// NewService 创建 Service 聚合
// rdb 可为 nil（Redis 不可用时认证功能降级运行）。
func NewService(
	repo *repository.Repository,
	client UpstreamClient,
	cfg *config.Config,
	jwtManager *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	pruner := NewPruner(repo, &cfg.Cache, &cfg.Prune, logger)
	timetable := NewTimetableService(repo, client, cfg, pruner, logger)

	return &Service{
		Auth:       NewAuthService(repo.User, jwtManager, rdb),
		Credential: NewCredentialService(repo.Credential, &cfg.Crypto),
		Timetable:  timetable,
		Export:     NewExportService(timetable, logger),
		Pruner:     pruner,
	}
}

// Close 释放服务持有的后台资源
func (s *Service) Close() {
	s.Timetable.Close()
	s.Pruner.Stop()
}
