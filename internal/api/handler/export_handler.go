package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXLSX 导出课表为 Excel
// GET /api/v1/export/sessions.xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	h.download(c, h.exportSvc.ExportXLSX, contentTypeXLSX)
}

// ExportICS 导出课表为 iCalendar
// GET /api/v1/export/sessions.ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	h.download(c, h.exportSvc.ExportICS, contentTypeICS)
}

func (h *ExportHandler) download(
	c *gin.Context,
	export func(context.Context) (*bytes.Buffer, string, error),
	contentType string,
) {
	buf, filename, err := export(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmpty):
		response.NotFound(c, 21003, "暂无课程数据可导出")
	default:
		response.InternalError(c)
	}
}
