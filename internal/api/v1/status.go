package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restodocks/internal/store"
)

// topUnresolvedLimit 状态页展示的未解析名称数
const topUnresolvedLimit = 20

// StatusResponse 系统状态响应
type StatusResponse struct {
	TotalRuns     int                   `json:"totalRuns"`
	Operations    []store.OperationStat `json:"operations"`
	TopUnresolved []store.NameCount     `json:"topUnresolved"`
	LastRun       *store.Run            `json:"lastRun,omitempty"`
	LedgerSheet   string                `json:"ledgerSheet"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	stats, err := h.store.ListOperationStats()
	if err != nil {
		h.logger.Error("operation stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计运行记录失败"})
		return
	}
	top, err := h.store.TopUnresolved(topUnresolvedLimit)
	if err != nil {
		h.logger.Error("top unresolved failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计未解析名称失败"})
		return
	}

	resp := StatusResponse{
		Operations:    stats,
		TopUnresolved: top,
		LedgerSheet:   h.cfg.Ledger.Sheet,
	}
	if resp.Operations == nil {
		resp.Operations = []store.OperationStat{}
	}
	if resp.TopUnresolved == nil {
		resp.TopUnresolved = []store.NameCount{}
	}
	for _, s := range stats {
		resp.TotalRuns += s.Runs
	}

	// 最后一次运行；记录被删除时忽略
	if id, err := h.store.GetSetting(store.SettingLastRunID); err == nil {
		if run, err := h.store.GetRun(id); err == nil {
			resp.LastRun = run
		}
	} else if !errors.Is(err, store.ErrSettingNotFound) {
		h.logger.Warn("read last run failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, resp)
}

// GetConfig 当前生效的配置（只读）
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg)
}
