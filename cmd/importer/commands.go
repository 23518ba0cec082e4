package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/bootstrap"
	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/database"
)

// ── check ──

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "只解析文件并汇报识别结果，不写入存储",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			table, err := ingest.ReadTable(f, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if len(table) == 0 {
				return ingest.ErrEmptySource
			}
			cols, err := ingest.ResolveHeader(table[0])
			if err != nil {
				return err
			}
			sessions, err := ingest.Ingest(table, ingest.Options{RoomPrefix: a.cfg.Ingest.RoomPrefix})
			if err != nil {
				return err
			}
			return printCheckReport(cmd.OutOrStdout(), table, cols, sessions)
		},
	}
}

func printCheckReport(out io.Writer, table [][]string, cols ingest.Columns, sessions []model.ClassSession) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "列\t表头")
	for _, r := range ingest.Roles() {
		header := "-"
		if cols.Has(r) {
			header = table[0][cols.Index(r)]
		}
		fmt.Fprintf(w, "%s\t%s\n", r, header)
	}
	fmt.Fprintln(w)

	byShift := make(map[model.Shift]int, len(model.Shifts))
	for _, s := range sessions {
		byShift[s.Shift]++
	}
	fmt.Fprintf(w, "数据行\t%d\n", len(table)-1)
	fmt.Fprintf(w, "有效场次\t%d\n", len(sessions))
	for _, shift := range model.Shifts {
		fmt.Fprintf(w, "  %s\t%d\n", shift, byShift[shift])
	}
	return w.Flush()
}

// ── import ──

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "导入 CSV/XLSX 并整体替换当前课表",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withImporter(cmd.Context(), func(ctx context.Context, svc service.ImportService) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				resp, err := svc.ImportFile(ctx, bufio.NewReader(f), filepath.Base(args[0]))
				if err != nil {
					return err
				}
				printImportResult(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

// ── sync ──

func newSyncCmd(a *app) *cobra.Command {
	var sourceURL string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "从数据源地址拉取课表并导入",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sourceURL != "" {
				a.cfg.Ingest.SourceURL = sourceURL
			}
			return a.withImporter(cmd.Context(), func(ctx context.Context, svc service.ImportService) error {
				resp, err := svc.Sync(ctx)
				if err != nil {
					return err
				}
				printImportResult(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sourceURL, "url", "", "数据源地址，默认取 ingest.source_url")
	return cmd
}

func printImportResult(out io.Writer, resp *dto.ImportResponse) {
	if resp.Restored {
		fmt.Fprintf(out, "数据源不可用，已从缓存恢复 %d 条场次: %s\n", resp.ImportedCount, resp.Warning)
		return
	}
	fmt.Fprintf(out, "已从 %s 导入 %d 条场次\n", resp.Source, resp.ImportedCount)
}

// withImporter 打开存储与 Redis，组装导入服务后执行 fn
func (a *app) withImporter(parent context.Context, fn func(context.Context, service.ImportService) error) error {
	ctx, stop := signalContext(parent)
	defer stop()

	repo, closeStore, err := bootstrap.OpenRepository(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := bootstrap.OpenRedis(&a.cfg.Redis, a.logger)
	var (
		lock  service.ImportLock
		cache service.ImportCache
	)
	if rdb != nil {
		defer rdb.Close()
		lock, cache = rdb, rdb
	}

	fetcher := ingest.NewFetcher(a.cfg.Ingest.FetchTimeout, a.cfg.Ingest.MaxFileBytes)
	svc := service.NewImportService(a.cfg.Ingest, repo, fetcher, lock, cache, nil, a.logger)
	return fn(ctx, svc)
}

// ── export ──

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出当前课表为 xlsx 或 ics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeStore, err := bootstrap.OpenRepository(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := service.NewExportService(repo, a.logger)
			export := svc.ExportXLSX
			switch format {
			case "xlsx":
			case "ics":
				export = svc.ExportICS
			default:
				return fmt.Errorf("不支持的导出格式: %q（xlsx | ics）", format)
			}

			buf, filename, err := export(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = filename
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			a.logger.Info("导出完成", zap.String("file", output), zap.Int("bytes", buf.Len()))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "导出格式：xlsx | ics")
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件，默认按日期命名")
	return cmd
}

// ── migrate ──

func newMigrateCmd(a *app) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "执行或回滚 PostgreSQL 迁移",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Driver != "postgres" {
				return errors.New("迁移仅适用于 store.driver=postgres")
			}
			db, err := database.NewDB(&a.cfg.DB, a.cfg.Log.Level, a.logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if args[0] == "down" {
				return database.RollbackMigrations(sqlDB, steps, a.logger)
			}
			return database.RunMigrations(sqlDB, a.logger)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "回滚步数（仅 down）")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
