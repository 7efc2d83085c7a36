// Package v1 HTTP API：上传工作簿运行、查看运行历史、下载结果。
package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restodocks/internal/config"
	"restodocks/internal/linker"
	"restodocks/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	cfg       *config.AppConfig
	store     *store.Store
	runner    *linker.Coordinator
	uploadDir string
	outputDir string
	downloads *downloadStore
	logger    *zap.Logger
}

// Dirs 上传与输出目录
type Dirs struct {
	Uploads string
	Outputs string
}

// NewHandler 创建 V1 API 处理器
func NewHandler(cfg *config.AppConfig, st *store.Store, runner *linker.Coordinator, dirs Dirs, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:       cfg,
		store:     st,
		runner:    runner,
		uploadDir: dirs.Uploads,
		outputDir: dirs.Outputs,
		downloads: newDownloadStore(),
		logger:    logger,
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	router.GET("/config", h.GetConfig)

	// 运行
	router.POST("/runs", h.CreateRun)
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)
	router.DELETE("/runs/:id", h.DeleteRun)

	// 结果下载（一次性）
	router.GET("/download/:token", h.Download)
}
