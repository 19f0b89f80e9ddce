package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
)

var version = "dev"

// env carries what every command needs: the viper instance the flags are
// bound to and the clock used for default dates.
type env struct {
	v       *viper.Viper
	now     func() time.Time
	cfgFile string
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "📒 Personal finance ledger",
		Long: `tally keeps categories, budgets, transactions and monthly bank balances
in a local SQLite database.

Start with 'tally init' to create the database and sample data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return e.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default: $HOME/.config/tally/config.yaml)")
	flags.String("db", "", "database path (default: $HOME/.local/share/tally/tally.db)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", common.LogFormatConsole, "log format (console, json)")

	_ = e.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = e.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = e.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(initCmd(e))
	rootCmd.AddCommand(resetCmd(e))
	rootCmd.AddCommand(categoriesCmd(e))
	rootCmd.AddCommand(budgetsCmd(e))
	rootCmd.AddCommand(transactionsCmd(e))
	rootCmd.AddCommand(balancesCmd(e))
	rootCmd.AddCommand(summaryCmd(e))
	rootCmd.AddCommand(importCmd(e))
	rootCmd.AddCommand(importOFXCmd(e))
	rootCmd.AddCommand(exportCmd(e))
	rootCmd.AddCommand(snapshotCmd(e))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func newEnv() *env {
	return &env{v: viper.New(), now: time.Now}
}

func (e *env) initConfig() error {
	if err := config.LoadEnvFile(); err != nil {
		return err
	}

	config.Configure(e.v, e.cfgFile)
	if err := config.ReadInConfig(e.v); err != nil {
		return err
	}

	if err := common.SetupLogger(e.v.GetString("logging.level"), e.v.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("tally %s\n", version)
		},
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd(newEnv()).ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(common.UserMessage(err)))
		os.Exit(1)
	}
}
