package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restodocks/internal/server"
)

var (
	servePort int
	serveDev  bool
	runsLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务（上传工作簿、运行历史、/metrics）",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "列出最近的运行记录",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, info, err := loadConfig()
	if err != nil {
		return err
	}
	// 命令行端口仅在配置文件未显式指定时生效
	if servePort > 0 && !info.PortSpecified {
		cfg.Server.Port = servePort
	}
	if serveDev {
		cfg.Server.DevMode = true
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server listening", zap.String("addr", addr), zap.Bool("dev", cfg.Server.DevMode))
	fmt.Fprintf(cmd.OutOrStdout(), "服务已启动: http://localhost:%d  (Ctrl+C 停止)\n", cfg.Server.Port)

	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Data.RecordRuns = true
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(runsLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATION\tSTATUS\tFORMULAS\tAPPENDED\tUNRESOLVED\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Operation, r.Status, r.Formulas, r.Appended, r.Unresolved,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
