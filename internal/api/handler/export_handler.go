package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/dto"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/service"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/response"
)

// ExportHandler 课表导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportICS 导出 iCalendar
// GET /api/v1/export/ics?start=2024-03-04&end=2024-03-10
func (h *ExportHandler) ExportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	start, end, ok := bindScheduleQuery(c)
	if !ok {
		return
	}

	content, filename, err := h.exportSvc.ExportICS(c.Request.Context(), userID, userID, start, end)
	if err != nil {
		writeExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(content))
}

// ExportXLSX 导出 Excel
// GET /api/v1/export/xlsx?start=2024-03-04&end=2024-03-10
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	start, end, ok := bindScheduleQuery(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportXLSX(c.Request.Context(), userID, userID, start, end)
	if err != nil {
		writeExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// bindScheduleQuery 解析导出查询参数；失败时已写入响应
func bindScheduleQuery(c *gin.Context) (start, end *time.Time, ok bool) {
	var query dto.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return nil, nil, false
	}
	start, end, err := query.Bounds()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return nil, nil, false
	}
	return start, end, true
}

func writeExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoLessons):
		response.NotFound(c, 13001, "该区间内无课时可导出")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		writeScheduleError(c, err)
	}
}
