// Package main provides the Indexa ingestion worker entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/Indexa/internal/app"
	"github.com/markdave123-py/Indexa/internal/config"
	"github.com/markdave123-py/Indexa/internal/logging"
)

var (
	logLevel string
	logJSON  bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Indexa document ingestion worker",
	Long: `worker claims pending documents from the queue and runs each one
through the ingestion pipeline: download, extract, classify, chunk,
embed and persist.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker continuously, polling for pending documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			a.Ops.Start()
			defer shutdownOps(a)
			return a.Claimer.RunContinuous(ctx)
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process one batch of pending documents and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			n, err := a.Claimer.RunBatch(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d document(s)\n", n)
			return nil
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process <document-id>",
	Short: "Claim and process a single document by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			claimed, err := a.Claimer.Claim(ctx, id)
			if err != nil {
				return fmt.Errorf("claim: %w", err)
			}
			if !claimed {
				return fmt.Errorf("document %s is not pending", id)
			}
			return a.Orchestrator.ProcessDocument(ctx, id)
		})
	},
}

// withApp builds the application, runs fn, and tears everything down.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg := config.LoadConfig()
	logger := logging.New(logging.Config{
		Level:       logLevel,
		ServiceName: "indexa-worker",
		JSONFormat:  logJSON,
	})

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer a.Close()

	return fn(ctx, a)
}

func shutdownOps(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Ops.Shutdown(ctx)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.AddCommand(runCmd, batchCmd, processCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
