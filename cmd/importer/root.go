package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	applogger "github.com/davimluiz/painelalunosvercel/pkg/logger"
)

// app 子命令共享的配置与日志
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "importer",
		Short:         "课表看板命令行工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOffline(a.configPath)
			if err != nil {
				return err
			}
			logger, err := applogger.NewLogger(&cfg.Log)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "配置文件路径")

	root.AddCommand(
		newCheckCmd(a),
		newImportCmd(a),
		newSyncCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
	)
	return root
}
