package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

// ImportHandler 课表导入 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// ImportFile 上传 CSV/XLSX 并整体替换课表
// POST /api/v1/sessions/import
//   - multipart/form-data, field="file"
func (h *ImportHandler) ImportFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return
		}
		response.BadRequest(c, 10001, "请上传课表文件（字段 file）")
		return
	}
	defer file.Close()

	result, err := h.importSvc.ImportFile(c.Request.Context(), file, header.Filename)
	if err != nil {
		handleImportError(c, err)
		return
	}

	response.OK(c, result)
}

// Sync 立即从配置的数据源同步
// POST /api/v1/sessions/sync
func (h *ImportHandler) Sync(c *gin.Context) {
	result, err := h.importSvc.Sync(c.Request.Context())
	if err != nil {
		handleImportError(c, err)
		return
	}

	response.OK(c, result)
}

// Status 最近一次导入状态
// GET /api/v1/sessions/import/status
func (h *ImportHandler) Status(c *gin.Context) {
	response.OK(c, h.importSvc.Status(c.Request.Context()))
}

// handleImportError 导入错误 → 业务码；表头错误附带缺失列
func handleImportError(c *gin.Context, err error) {
	var headerErr *ingest.HeaderResolutionError
	switch {
	case errors.As(err, &headerErr):
		missing := make([]string, len(headerErr.Missing))
		for i, r := range headerErr.Missing {
			missing[i] = r.String()
		}
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 20001, "表头缺少必要列", gin.H{
			"missing": missing,
			"headers": headerErr.Headers,
		})
	case errors.Is(err, ingest.ErrEmptySource):
		response.UnprocessableEntity(c, 20002, err.Error())
	case errors.Is(err, ingest.ErrSourceUnavailable):
		response.BadGateway(c, 20003, err.Error())
	case errors.Is(err, service.ErrImportBusy):
		response.Conflict(c, 20004, "已有导入任务正在执行，请稍后再试")
	case errors.Is(err, ingest.ErrUnreadableTable):
		response.BadRequest(c, 20005, err.Error())
	case errors.Is(err, service.ErrImportNoSource):
		response.BadRequest(c, 10001, "未配置课表同步地址")
	default:
		response.InternalError(c)
	}
}
