// Command importer 在終端機上匯入供應商價目表，可寫入本地資料庫或遠端目錄服務。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/pkg/common"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "Import supplier price lists into the costing catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return common.InitLogger(common.LoggerOptions{
				Level:   level,
				File:    cfg.LogFile,
				Service: "recipe-costing-importer",
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			common.Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newParseCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
