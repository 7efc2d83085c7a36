package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"restodocks/internal/linker"
	"restodocks/internal/model"
)

// maxListed 终端输出中最多列出的名称数
const maxListed = 20

func runOperation(op model.Operation) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		opts := []linker.Option{linker.WithLogger(logger)}
		if st != nil {
			defer st.Close()
			opts = append(opts, linker.WithStore(st))
		}

		ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := linker.NewCoordinator(cfg, opts...).Execute(ctx, linker.RunOptions{
			Operation:    op,
			InputPath:    args[0],
			OutputPath:   outPath,
			OverridePath: overridesPath,
			Catalogs:     catalogPaths,
		})
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printReport 输出运行摘要
func printReport(w io.Writer, r *model.RunReport) {
	fmt.Fprintf(w, "运行 %s (%s) 用时 %s\n", r.RunID, r.Operation, r.Duration.Round(time.Millisecond))
	for _, s := range r.Sheets {
		switch s.Status {
		case model.SheetProcessed:
			fmt.Fprintf(w, "  %-24s %d 个块，%d 条公式，%d 行汇总\n", s.SheetName, s.Blocks, s.Formulas, s.Summaries)
		default:
			fmt.Fprintf(w, "  %-24s %s %v\n", s.SheetName, s.Status, s.Errors)
		}
	}
	if r.NutritionFilled > 0 {
		fmt.Fprintf(w, "台账 КБЖУ 已填充: %d\n", r.NutritionFilled)
	}
	if r.ConvertedCells > 0 {
		fmt.Fprintf(w, "已改写公式: %d\n", r.ConvertedCells)
	}
	if n := len(r.Appended); n > 0 {
		fmt.Fprintf(w, "台账新增 %d 个产品（价格待填）:\n", n)
		for i, rec := range r.Appended {
			if i == maxListed {
				fmt.Fprintf(w, "  ... 另有 %d 个\n", n-maxListed)
				break
			}
			fmt.Fprintf(w, "  %d. %s\n", rec.ID, rec.Name)
		}
	}
	if n := len(r.Unresolved); n > 0 {
		fmt.Fprintf(w, "未匹配 %d 个名称（公式缺省为 0）:\n", n)
		for i, u := range r.Unresolved {
			if i == maxListed {
				fmt.Fprintf(w, "  ... 另有 %d 个\n", n-maxListed)
				break
			}
			fmt.Fprintf(w, "  %s!%d %s\n", u.Sheet, u.Row, u.Name)
		}
	}
	fmt.Fprintf(w, "已保存: %s\n", r.OutputPath)
}
