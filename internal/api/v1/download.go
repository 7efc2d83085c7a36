package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"

	"restodocks/internal/model"
)

// Download 下载运行结果（一次性）
// GET /api/download/:token
func (h *Handler) Download(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token"})
		return
	}

	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}
	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "输出文件不存在"})
		return
	}

	c.Header("Content-Disposition", buildContentDisposition(item.fileName, item.operation))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(item.filePath)

	_ = os.Remove(item.filePath)
}

// buildContentDisposition ASCII 文件名兜底 + RFC 5987 UTF-8 文件名
func buildContentDisposition(name string, op model.Operation) string {
	return fmt.Sprintf("attachment; filename=\"restodocks-%s.xlsx\"; filename*=UTF-8''%s", op, url.PathEscape(name))
}
