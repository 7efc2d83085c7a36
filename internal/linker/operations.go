package linker

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"restodocks/internal/blocks"
	"restodocks/internal/catalog"
	"restodocks/internal/config"
	"restodocks/internal/dialect"
	"restodocks/internal/formula"
	"restodocks/internal/ledger"
	"restodocks/internal/model"
	"restodocks/internal/parser"
	"restodocks/internal/resolver"
	"restodocks/internal/summary"
)

// layoutPicker 选出 sheet 配置中的某类布局
type layoutPicker func(config.SheetConfig) *model.ColumnLayout

func priceLayout(s config.SheetConfig) *model.ColumnLayout     { return s.Price }
func nutritionLayout(s config.SheetConfig) *model.ColumnLayout { return s.Nutrition }

// linkPrices 价格与成本公式
func (c *Coordinator) linkPrices(rc *runContext) error {
	overrides, err := catalog.LoadOverrides(c.overridePath(rc))
	if err != nil {
		return err
	}
	syn := formula.New(formula.NewLedgerRange(c.cfg.Ledger), c.ledgerResolver(overrides, rc.book.Ledger))
	return c.applyLayouts(rc, model.OpLinkPrices, priceLayout, syn)
}

// addKBJU 台账 КБЖУ 填充 + 每行营养公式
func (c *Coordinator) addKBJU(rc *runContext) error {
	overrides, err := catalog.LoadOverrides(c.overridePath(rc))
	if err != nil {
		return err
	}
	paths := rc.opts.Catalogs
	if len(paths) == 0 {
		paths = c.cfg.Resolver.Catalogs
	}
	records, err := catalog.LoadNutrition(paths...)
	if err != nil {
		return err
	}
	rc.emit(ProgressEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("载入 КБЖУ: 目录 %d 条，手工映射 %d 条", len(records), len(overrides)),
	})

	catalogResolver := resolver.New(overrides, records, c.resolverOptions()...)
	filled, err := rc.book.FillNutrition(rc.file, catalogResolver)
	if err != nil {
		return err
	}
	rc.report.NutritionFilled += filled
	rc.emit(ProgressEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("%s: КБЖУ 已填充 %d 个产品", c.cfg.Ledger.Sheet, filled),
		Data:    map[string]any{"sheet_name": c.cfg.Ledger.Sheet, "filled": filled},
	})

	syn := formula.New(formula.NewLedgerRange(c.cfg.Ledger), c.ledgerResolver(overrides, rc.book.Ledger))
	return c.applyLayouts(rc, model.OpAddKBJU, nutritionLayout, syn)
}

// addMissing 把配料块中出现但台账中没有的名称追加到台账
func (c *Coordinator) addMissing(rc *runContext) error {
	collector := ledger.NewCollector(c.cfg.Merge.MaxScanRow)
	for _, sc := range c.cfg.Sheets {
		if !sc.CollectNames {
			continue
		}
		if err := rc.ctx.Err(); err != nil {
			return err
		}
		sheetStart := time.Now()
		snap, found, err := c.readSheet(rc, sc.Name, model.OpAddMissing)
		if err != nil || !found {
			continue
		}
		detected := c.detect(sc, snap)
		for _, b := range detected {
			collector.Add(snap, b, nameCol(sc))
		}
		rc.addSheet(model.SheetResult{
			SheetName: sc.Name,
			Operation: model.OpAddMissing,
			Status:    model.SheetProcessed,
			Blocks:    len(detected),
			Duration:  time.Since(sheetStart),
		})
	}

	added := ledger.MergeMissing(collector.Names(), rc.book.Ledger, c.cfg.Merge.SkipNames)
	if err := rc.book.Append(rc.file, added); err != nil {
		return err
	}
	rc.report.Appended = append(rc.report.Appended, added...)

	msg := fmt.Sprintf("%s: 追加 %d 个产品（无价格）", c.cfg.Ledger.Sheet, len(added))
	if len(added) == 0 {
		msg = fmt.Sprintf("%s: 所有配料均已存在", c.cfg.Ledger.Sheet)
	}
	rc.emit(ProgressEvent{Type: EventInfo, Message: msg, Data: added})
	rc.log.Info("ledger merged", zap.Int("appended", len(added)))
	return nil
}

// convert Numbers -> Google Sheets 公式
func (c *Coordinator) convert(rc *runContext) error {
	n, err := dialect.ConvertWorkbook(rc.file)
	if err != nil {
		return err
	}
	rc.report.ConvertedCells = n
	rc.emit(ProgressEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("已改写公式 %d 个", n),
		Data:    map[string]any{"converted": n},
	})
	return nil
}

// applyLayouts 对每个配置了该类布局的 sheet 生成公式与汇总行
func (c *Coordinator) applyLayouts(rc *runContext, op model.Operation, pick layoutPicker, syn *formula.Synthesizer) error {
	for _, sc := range c.cfg.Sheets {
		layout := pick(sc)
		if layout == nil {
			continue
		}
		if err := rc.ctx.Err(); err != nil {
			return err
		}
		if err := c.processSheet(rc, op, sc, *layout, syn); err != nil {
			return err
		}
	}
	return nil
}

// processSheet 处理单个 sheet：识别块 -> 计划汇总 -> 生成公式 -> 插入 -> 写入
//
// 读取失败只记为该 sheet 的错误；写入失败会使工作簿处于不一致状态，直接终止运行。
func (c *Coordinator) processSheet(rc *runContext, op model.Operation, sc config.SheetConfig, layout model.ColumnLayout, syn *formula.Synthesizer) error {
	sheetStart := time.Now()
	snap, found, err := c.readSheet(rc, sc.Name, op)
	if err != nil || !found {
		return nil
	}

	detected := c.detect(sc, snap)
	plan := summary.NewPlan(snap, detected, layout, summaryLabels(sc))
	hasFormula := func(row, col int) bool {
		text, err := rc.file.GetCellFormula(sc.Name, formula.Cell(col, row))
		return err == nil && text != ""
	}

	result := model.SheetResult{
		SheetName: sc.Name,
		Operation: op,
		Status:    model.SheetProcessed,
		Blocks:    len(detected),
	}
	var cells []model.DerivedFormula
	for _, b := range detected {
		res := syn.Synthesize(b, formula.Sheet{
			Snapshot:   snap,
			Layout:     layout,
			Rows:       plan.Shift(),
			HasFormula: hasFormula,
		})
		cells = append(cells, res.Formulas...)
		result.Unresolved = append(result.Unresolved, res.Unresolved...)
	}

	if err := plan.Apply(rc.file); err != nil {
		return err
	}
	cells = append(cells, plan.Cells()...)
	if err := writeCells(rc, sc.Name, cells); err != nil {
		return err
	}

	for _, cell := range cells {
		if cell.IsFormula() {
			result.Formulas++
		}
	}
	result.Summaries = plan.Inserted()
	result.Duration = time.Since(sheetStart)
	rc.addSheet(result)

	rc.log.Debug("sheet processed",
		zap.String("sheet", sc.Name),
		zap.Int("blocks", result.Blocks),
		zap.Int("formulas", result.Formulas),
		zap.Int("summaries", result.Summaries),
		zap.Int("unresolved", len(result.Unresolved)),
	)
	rc.emit(ProgressEvent{
		Type: EventSheetDone,
		Message: fmt.Sprintf("%s: %d 个块，%d 条公式，%d 行汇总，%d 个未匹配",
			sc.Name, result.Blocks, result.Formulas, result.Summaries, len(result.Unresolved)),
		Data: result,
	})
	return nil
}

// readSheet 读取 sheet 快照；不存在或读取失败时记录 skipped / error 结果
func (c *Coordinator) readSheet(rc *runContext, name string, op model.Operation) (parser.Snapshot, bool, error) {
	rc.emit(ProgressEvent{
		Type:    EventSheetStart,
		Message: fmt.Sprintf("正在处理 Sheet: %s", name),
		Data:    map[string]string{"sheet_name": name, "operation": string(op)},
	})

	if !parser.HasSheet(rc.file, name) {
		rc.addSheet(model.SheetResult{
			SheetName: name,
			Operation: op,
			Status:    model.SheetSkipped,
			Errors:    []string{"sheet not found"},
		})
		rc.emit(ProgressEvent{
			Type:    EventWarning,
			Message: fmt.Sprintf("跳过不存在的 Sheet: %s", name),
			Data:    map[string]string{"sheet_name": name},
		})
		return parser.Snapshot{}, false, nil
	}

	snap, err := parser.ReadSheet(rc.file, name)
	if err != nil {
		rc.addSheet(model.SheetResult{
			SheetName: name,
			Operation: op,
			Status:    model.SheetError,
			Errors:    []string{err.Error()},
		})
		rc.emit(ProgressEvent{
			Type:    EventWarning,
			Message: fmt.Sprintf("读取 Sheet 失败: %s: %v", name, err),
		})
		rc.log.Warn("read sheet failed", zap.String("sheet", name), zap.Error(err))
		return parser.Snapshot{}, false, err
	}
	return snap, true, nil
}

// detect 按 sheet 模式识别配料块
func (c *Coordinator) detect(sc config.SheetConfig, snap parser.Snapshot) []model.IngredientBlock {
	mode := sc.Mode
	if mode == config.ModeAuto {
		switch c.recognizer.Recognize(snap).Kind {
		case parser.SheetKindBlocks:
			mode = config.ModeBlocks
		default:
			mode = config.ModeFlat
		}
	}
	if mode == config.ModeBlocks {
		return blocks.Detect(snap, c.recognizer)
	}

	first := sc.FirstDataRow
	if first < 1 {
		first = 2
	}
	return []model.IngredientBlock{blocks.Flat(snap, first)}
}

func (c *Coordinator) overridePath(rc *runContext) string {
	if rc.opts.OverridePath != "" {
		return rc.opts.OverridePath
	}
	return c.cfg.Resolver.OverridePath
}

func (c *Coordinator) resolverOptions() []resolver.Option {
	return []resolver.Option{
		resolver.WithSemiFinishedPrefix(c.cfg.Resolver.SemiFinishedPrefix),
		resolver.WithObserver(c.metrics.ObserveResolution),
	}
}

func (c *Coordinator) ledgerResolver(overrides model.OverrideCatalog, l *model.CanonicalLedger) *resolver.Resolver {
	return resolver.FromLedger(overrides, l, c.resolverOptions()...)
}

// summaryLabels sheet 上所有布局的汇总标签
func summaryLabels(sc config.SheetConfig) []string {
	var out []string
	for _, l := range []*model.ColumnLayout{sc.Price, sc.Nutrition} {
		if l != nil && l.SummaryLabel != "" {
			out = append(out, l.SummaryLabel)
		}
	}
	return out
}

// nameCol sheet 的名称列（取第一个布局的配置，默认 B）
func nameCol(sc config.SheetConfig) int {
	for _, l := range []*model.ColumnLayout{sc.Price, sc.Nutrition} {
		if l != nil && l.NameCol > 0 {
			return l.NameCol
		}
	}
	return 2
}

// writeCells 写入派生值（物理坐标）
func writeCells(rc *runContext, sheet string, cells []model.DerivedFormula) error {
	for _, cell := range cells {
		ref := formula.Cell(cell.Col, cell.Row)
		var err error
		if cell.IsFormula() {
			err = rc.file.SetCellFormula(sheet, ref, cell.Formula)
		} else {
			err = rc.file.SetCellValue(sheet, ref, cell.Value)
		}
		if err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, ref, err)
		}
	}
	return nil
}
