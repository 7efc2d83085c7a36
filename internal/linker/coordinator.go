// Package linker 协调一次工作簿运行：识别配料块、生成公式、插入汇总行、合并台账并输出新文件。
package linker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"restodocks/internal/config"
	"restodocks/internal/ledger"
	"restodocks/internal/metrics"
	"restodocks/internal/model"
	"restodocks/internal/parser"
	"restodocks/internal/store"
)

// ErrUnknownOperation 未知的运行类型
var ErrUnknownOperation = errors.New("unknown operation")

// Coordinator 运行协调器
type Coordinator struct {
	cfg        *config.AppConfig
	store      *store.Store
	metrics    *metrics.Metrics
	logger     *zap.Logger
	recognizer *parser.SheetRecognizer
}

// Option 协调器选项
type Option func(*Coordinator)

// WithStore 运行结果写入 SQLite
func WithStore(s *store.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithMetrics 记录运行指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger 结构化日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator 创建运行协调器
func NewCoordinator(cfg *config.AppConfig, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		logger:     zap.NewNop(),
		recognizer: parser.NewSheetRecognizer(cfg.Blocks.Markers, cfg.Blocks.IngredientLabel),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunOptions 运行选项
type RunOptions struct {
	Operation model.Operation
	InputPath string
	// OutputPath 为空时写到输入文件旁：<stem>_<suffix>.xlsx
	OutputPath string
	// OverridePath / Catalogs 为空时使用配置
	OverridePath string
	Catalogs     []string
}

// runContext 一次运行的上下文
type runContext struct {
	ctx      context.Context
	opts     RunOptions
	file     *excelize.File
	book     *ledger.Book
	report   *model.RunReport
	progress chan<- ProgressEvent
	log      *zap.Logger
	// quiet 时不记录 sheet 结果、不发送进度（用于重写公式）
	quiet bool
}

func (rc *runContext) addSheet(res model.SheetResult) {
	if rc.quiet {
		return
	}
	rc.report.AddSheet(res)
}

func (rc *runContext) emit(event ProgressEvent) {
	if rc.quiet {
		return
	}
	sendProgress(rc.progress, event)
}

// Run 异步执行，返回进度通道；最后一个事件为 done（Data 为 *model.RunReport）或 error
func (c *Coordinator) Run(ctx context.Context, opts RunOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		report, err := c.execute(ctx, opts, progressChan)
		final := ProgressEvent{
			Type:      EventDone,
			Message:   fmt.Sprintf("完成，输出: %s", filepath.Base(report.OutputPath)),
			Data:      report,
			Timestamp: time.Now(),
		}
		if err != nil {
			final.Type = EventError
			final.Message = err.Error()
		}
		// 终止事件不能丢弃：阻塞直到被读取或 ctx 取消
		select {
		case progressChan <- final:
		case <-ctx.Done():
		}
	}()

	return progressChan
}

// Execute 同步执行一次运行
func (c *Coordinator) Execute(ctx context.Context, opts RunOptions) (*model.RunReport, error) {
	return c.execute(ctx, opts, nil)
}

func (c *Coordinator) execute(ctx context.Context, opts RunOptions, progress chan<- ProgressEvent) (*model.RunReport, error) {
	startTime := time.Now()
	report := &model.RunReport{
		RunID:     uuid.NewString(),
		Operation: opts.Operation,
		InputPath: opts.InputPath,
	}
	log := c.logger.With(zap.String("run_id", report.RunID), zap.String("operation", string(opts.Operation)))

	if !opts.Operation.Valid() {
		return report, fmt.Errorf("%w: %q", ErrUnknownOperation, opts.Operation)
	}

	sendProgress(progress, ProgressEvent{
		Type:    EventStart,
		Message: fmt.Sprintf("开始处理 %s", filepath.Base(opts.InputPath)),
		Data: map[string]string{
			"run_id":    report.RunID,
			"operation": string(opts.Operation),
			"filename":  filepath.Base(opts.InputPath),
		},
	})

	c.recordStart(report, log)
	err := c.run(ctx, opts, report, progress, log)
	report.Duration = time.Since(startTime)
	c.recordFinish(report, err, log)

	if err != nil {
		log.Error("run failed", zap.Error(err))
		return report, err
	}
	log.Info("run finished",
		zap.String("output", report.OutputPath),
		zap.Int("formulas", report.Formulas),
		zap.Int("summaries", report.Summaries),
		zap.Int("appended", len(report.Appended)),
		zap.Int("unresolved", len(report.Unresolved)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (c *Coordinator) run(ctx context.Context, opts RunOptions, report *model.RunReport, progress chan<- ProgressEvent, log *zap.Logger) error {
	file, err := excelize.OpenFile(opts.InputPath)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	rc := &runContext{
		ctx:      ctx,
		opts:     opts,
		file:     file,
		report:   report,
		progress: progress,
		log:      log,
	}
	report.TotalSheets = len(file.GetSheetList())

	sendProgress(progress, ProgressEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("发现 %d 个 Sheet", report.TotalSheets),
		Data:    map[string]any{"total_sheets": report.TotalSheets},
	})

	if opts.Operation == model.OpConvert {
		if err := c.convert(rc); err != nil {
			return err
		}
	} else {
		// 台账缺失是致命错误，不产生任何输出
		book, err := ledger.Load(file, c.cfg.Ledger)
		if err != nil {
			return err
		}
		rc.book = book
		if err := c.dispatch(rc); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	out := opts.OutputPath
	if out == "" {
		out = OutputPath(opts.InputPath, opts.Operation.OutputSuffix())
	}
	if err := saveAtomic(file, out); err != nil {
		return err
	}
	report.OutputPath = out
	return nil
}

func (c *Coordinator) dispatch(rc *runContext) error {
	switch rc.opts.Operation {
	case model.OpLinkPrices:
		return c.linkPrices(rc)
	case model.OpAddKBJU:
		return c.addKBJU(rc)
	case model.OpAddMissing:
		return c.addMissing(rc)
	case model.OpAll:
		for _, step := range []func(*runContext) error{c.linkPrices, c.addMissing, c.addKBJU} {
			if err := step(rc); err != nil {
				return err
			}
		}
		// КБЖУ 汇总行会移动已写入的价格公式；按当前坐标重写一遍（已有汇总行被复用）
		rc.quiet = true
		defer func() { rc.quiet = false }()
		return c.linkPrices(rc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, rc.opts.Operation)
	}
}

func (c *Coordinator) recordStart(report *model.RunReport, log *zap.Logger) {
	if c.store == nil || !c.cfg.Data.RecordRuns {
		return
	}
	size, hash := fileFingerprint(report.InputPath)
	if err := c.store.CreateRun(report.RunID, report.Operation, report.InputPath, size, hash); err != nil {
		log.Warn("record run start failed", zap.Error(err))
	}
}

func (c *Coordinator) recordFinish(report *model.RunReport, runErr error, log *zap.Logger) {
	c.metrics.ObserveRun(report, runErr)
	if c.store == nil || !c.cfg.Data.RecordRuns {
		return
	}

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	for _, sheet := range report.Sheets {
		if err := c.store.InsertRunSheet(report.RunID, sheet); err != nil {
			log.Warn("record sheet failed", zap.String("sheet", sheet.SheetName), zap.Error(err))
		}
	}
	if err := c.store.InsertUnresolved(report.RunID, report.Unresolved); err != nil {
		log.Warn("record unresolved names failed", zap.Error(err))
	}
	if err := c.store.FinishRun(report, errMsg); err != nil {
		log.Warn("record run finish failed", zap.Error(err))
	}
	if err := c.store.SetSetting(store.SettingLastRunID, report.RunID); err != nil {
		log.Warn("record last run failed", zap.Error(err))
	}
}

// fileFingerprint 文件大小与 sha256；读取失败时返回零值
func fileFingerprint(path string) (int64, string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, ""
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, ""
	}
	return n, hex.EncodeToString(h.Sum(nil))
}
