package main

import (
	"fmt"
	"path/filepath"

	"recipe-costing/internal/client/catalogclient"
	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/reconcile"
	"recipe-costing/internal/infrastructure/persistence"
	"recipe-costing/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	policy string
	dbPath string
	server string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Reconcile a price list against the catalog and write it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.policy, "policy", string(reconcile.PolicyAsk), "Similar-name policy: ask, merge or new")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from config)")
	cmd.Flags().StringVar(&opts.server, "server", "", "Base URL of a running costing service; overrides --db")
	return cmd
}

func runImport(cmd *cobra.Command, global *globalOptions, opts runOptions, path string) error {
	ctx := cmd.Context()
	cfg := global.cfg

	policy, err := reconcile.ParsePolicy(opts.policy)
	if err != nil {
		return err
	}

	report, err := readPriceList(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d rows in %d table(s), %d skipped\n", len(report.Rows), report.Tables, report.Skipped)

	var decider reconcile.Decider
	switch policy {
	case reconcile.PolicyMerge:
		decider = reconcile.AlwaysMerge()
	case reconcile.PolicyCreate:
		decider = reconcile.AlwaysCreate()
	default:
		decider = reconcile.NewInteractiveDecider(cmd.InOrStdin(), cmd.ErrOrStderr())
	}

	server := opts.server
	if server == "" {
		server = cfg.Catalog.URL
	}

	var store catalog.Store
	if server != "" {
		store = catalogclient.New(server, cfg.Catalog.Timeout)
		common.LogInfo("使用遠端目錄", zap.String("url", server))
	} else {
		dbCfg := cfg.Database
		if opts.dbPath != "" {
			dbCfg.Path = opts.dbPath
		}
		db, err := persistence.Open(ctx, dbCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		store = persistence.NewCatalogRepository(db)
	}

	summary, runErr := reconcile.New(store, decider, reconcile.WithSource(filepath.Base(path))).Run(ctx, report.Rows)
	if summary != nil {
		out, err := common.ToIndentedJSON(summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return runErr
}
