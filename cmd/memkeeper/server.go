package memkeeper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/memkeeper/memkeeper"
	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/logger"
	"github.com/memkeeper/memkeeper/pkg/server"
	"github.com/memkeeper/memkeeper/pkg/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Memkeeper HTTP server",
	Long: `Start the Memkeeper HTTP server to provide REST API access to the
knowledge graph store.

The server provides endpoints for:
- Creating entities, relations, observations, and tags
- Searching with exact, fuzzy, and tag-based matching
- Paginated search
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")

	// Database flags
	serverCmd.Flags().String("db-driver", "badger", "Database driver (badger, postgres)")
	serverCmd.Flags().String("db-uri", "./memkeeper_db", "Badger path (or :memory:), postgres DSN")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for error telemetry")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	log, flush, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	if err := cfg.Validate(log); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := memkeeper.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize memkeeper: %w", err)
	}
	defer client.Close()

	srv := server.New(cfg, client, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Info("server stopped gracefully")
		return nil
	}
}

// buildLogger constructs the process logger, stacking the error telemetry
// handler when a parquet path is configured. The returned flush func writes
// any buffered telemetry before exit.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	handler := logger.NewHandler(cfg.Log)

	if cfg.Telemetry.ParquetPath == "" {
		return slog.New(handler), func() {}, nil
	}

	if err := os.MkdirAll(cfg.Telemetry.ParquetPath, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
	if err != nil {
		// Telemetry is best-effort; keep the plain logger.
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize error tracking: %v\n", err)
		return slog.New(handler), func() {}, nil
	}

	flush := func() {
		if err := parquetHandler.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to flush telemetry: %v\n", err)
		}
	}
	return slog.New(parquetHandler), flush, nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Database flags
	if cmd.Flags().Changed("db-driver") {
		cfg.Database.Driver, _ = cmd.Flags().GetString("db-driver")
	}
	if cmd.Flags().Changed("db-uri") {
		cfg.Database.URI, _ = cmd.Flags().GetString("db-uri")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}
