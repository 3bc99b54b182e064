package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/api/handler"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/api/middleware"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/jwt"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// Untis 凭据模块
			credentials := authorized.Group("/credentials")
			{
				credentials.PUT("", h.Credential.SetCredential)
				credentials.GET("", h.Credential.GetCredential)
				credentials.DELETE("", h.Credential.DeleteCredential)
			}

			// 课表模块
			timetable := authorized.Group("/timetable")
			{
				timetable.GET("/me", h.Timetable.GetMySchedule)
				timetable.GET("/:ownerId", h.Timetable.GetUserSchedule)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/ics", h.Export.ExportICS)
				export.GET("/xlsx", h.Export.ExportXLSX)
			}
		}
	}

	return r
}
