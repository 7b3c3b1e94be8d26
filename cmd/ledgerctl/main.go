// Package main provides ledgerctl, an operator CLI for the produce ledger
// record store.
package main

import (
	"context"
	"fmt"
	"os"

	"produce-ledger/config"
	"produce-ledger/internal/redisclient"
	"produce-ledger/internal/service"
	"produce-ledger/internal/store"
	"produce-ledger/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// cfg is loaded once by PersistentPreRunE.
	cfg *config.Config

	// st is the shared record store, opened on startup.
	st *store.Store

	redisClient *redisclient.Client
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "ledgerctl manages the produce ledger record store",
	Long: `ledgerctl prepares tables, maintains the produce catalog and prints
the admin report against the record store configured through the same
environment variables as the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: openStore,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if redisClient != nil {
			redisClient.Close()
		}
		util.SyncLogger()
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(reportCmd)
}

// openStore loads config and connects the record store.
func openStore(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var grid store.Grid
	if cfg.Store.Backend == config.BackendMemory {
		util.GetLogger().Warn("Using in-memory record store, changes are discarded on exit")
		grid = store.NewMemoryGrid()
	} else {
		creds, err := cfg.Store.Credentials()
		if err != nil {
			return err
		}
		sg, err := store.NewSheetsGrid(ctx, cfg.Store.SpreadsheetID, creds)
		if err != nil {
			return fmt.Errorf("open spreadsheet: %w", err)
		}
		grid = sg
	}

	var opts []store.Option
	if cfg.Redis.Enabled() {
		c, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisClient = c
		opts = append(opts, store.WithLocker(c))
	}

	st = store.NewStore(grid, opts...)
	util.GetLogger().Debug("Record store opened",
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("distributed_lock", redisClient != nil))
	return nil
}

func newCatalog() *service.Catalog {
	return service.NewCatalog(st)
}

func newOrderService() *service.OrderService {
	return service.NewOrderService(st, newCatalog())
}
