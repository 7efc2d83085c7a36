package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"restodocks/internal/linker"
	"restodocks/internal/model"
	"restodocks/internal/store"
)

// downloadTTL 结果下载链接有效期
const downloadTTL = 10 * time.Minute

// RunDetail 运行详情
type RunDetail struct {
	Run        *store.Run             `json:"run"`
	Sheets     []model.SheetResult    `json:"sheets"`
	Unresolved []model.UnresolvedName `json:"unresolved"`
}

// CreateRun 上传工作簿并执行一次运行 (SSE 流式响应)
// POST /api/runs
//
// 表单字段：file（必填）、operation（默认 all）、overrides（可选）、catalog（可多个）。
// 完成事件的 data 为 {report, downloadUrl}。
func (h *Handler) CreateRun(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的表单数据"})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	op := model.Operation(c.DefaultPostForm("operation", string(model.OpAll)))
	if !op.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知的运行类型: %s", op)})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	batch := uuid.NewString()
	var saved []string
	// 上传文件在运行结束后删除；输出文件保留到被下载
	defer func() {
		for _, p := range saved {
			_ = os.Remove(p)
		}
	}()
	save := func(fh *multipart.FileHeader) (string, error) {
		path := filepath.Join(h.uploadDir, batch+"_"+filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, path); err != nil {
			return "", err
		}
		saved = append(saved, path)
		return path, nil
	}

	original := filepath.Base(files[0].Filename)
	inputPath, err := save(files[0])
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}
	opts := linker.RunOptions{
		Operation:  op,
		InputPath:  inputPath,
		OutputPath: filepath.Join(h.outputDir, filepath.Base(linker.OutputPath(inputPath, op.OutputSuffix()))),
	}
	if fhs := form.File["overrides"]; len(fhs) > 0 {
		if opts.OverridePath, err = save(fhs[0]); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "保存手工映射失败"})
			return
		}
	}
	for _, fh := range form.File["catalog"] {
		path, err := save(fh)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "保存 КБЖУ 目录失败"})
			return
		}
		opts.Catalogs = append(opts.Catalogs, path)
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event linker.ProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	for event := range h.runner.Run(c.Request.Context(), opts) {
		if event.Type == linker.EventDone {
			if report, ok := event.Data.(*model.RunReport); ok {
				token := h.downloads.put(download{
					filePath:  report.OutputPath,
					fileName:  filepath.Base(linker.OutputPath(original, op.OutputSuffix())),
					operation: op,
				}, downloadTTL)
				event.Data = gin.H{
					"report":      report,
					"downloadUrl": "/api/download/" + token,
				}
			}
		}
		send(event)
	}
}

// ListRuns 运行历史
// GET /api/runs?limit=50
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.store.ListRuns(limit)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询运行记录失败"})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun 运行详情（含 sheet 结果与未解析名称）
// GET /api/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	run, err := h.store.GetRun(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	sheets, err := h.store.ListRunSheets(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	unresolved, err := h.store.ListUnresolved(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunDetail{Run: run, Sheets: sheets, Unresolved: unresolved})
}

// DeleteRun 删除运行记录
// DELETE /api/runs/:id
func (h *Handler) DeleteRun(c *gin.Context) {
	if err := h.store.DeleteRun(strings.TrimSpace(c.Param("id"))); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "运行记录不存在"})
		return
	}
	h.logger.Error("store query failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败"})
}
