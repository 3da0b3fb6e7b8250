// Smartidler-agentsim is a development stand-in for the Smart Idler agent.
//
// It answers the agent's command table over WebSocket and HTTP, keeps its
// settings in memory or in a SQLite file, and can add latency and random
// failures so the panel's loading and error states can be seen by hand.
//
// Usage:
//
//	smartidler-agentsim serve [flags]
//
// See 'smartidler-agentsim serve --help' for available options.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/smartidler/internal/agentsim"
	"github.com/muurk/smartidler/internal/discovery"
	"github.com/muurk/smartidler/internal/logging"
	"github.com/muurk/smartidler/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartidler-agentsim",
	Short: "Smart Idler Agent Simulator",
	Long: `A development stand-in for the Smart Idler agent.

Answers the same commands as the agent so the settings panel can be run
and tested without a Windows machine.

For the panel itself, use the separate 'smartidler-panel' utility.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	addr         string
	dbPath       string
	latency      time.Duration
	failRate     float64
	advertise    bool
	instance     string
	recordInputs bool
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent simulator",
	Long: `Start the simulator and accept panel connections.

Endpoints:
  GET  /ws      WebSocket, one JSON request or response per message
  POST /invoke  one JSON request per HTTP request

Settings are kept in memory unless --db names a SQLite file, in which case
they survive restarts. With --record-inputs the simulator logs a robot input
every polling interval while input logging is enabled.`,
	Example: `  # Start on the default port with in-memory settings
  smartidler-agentsim serve

  # Persist settings and advertise over mDNS
  smartidler-agentsim serve --db ./agent.db --advertise

  # Slow, unreliable agent for exercising the panel
  smartidler-agentsim serve --latency 800ms --fail-rate 0.2 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", net.JoinHostPort("", strconv.Itoa(discovery.DefaultPort)), "Listen address")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (in-memory settings if not specified)")
	serveCmd.Flags().DurationVar(&latency, "latency", 0, "Delay every answer by this long")
	serveCmd.Flags().Float64Var(&failRate, "fail-rate", 0, "Fraction of requests to refuse, 0 to 1")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the simulator over mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default is the hostname)")
	serveCmd.Flags().BoolVar(&recordInputs, "record-inputs", false, "Record a robot input every polling interval")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if failRate < 0 || failRate > 1 {
		return fmt.Errorf("--fail-rate must be between 0 and 1, got %g", failRate)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in --addr %q: %w", addr, err)
	}

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn("Failed to close store", zap.Error(err))
		}
	}()

	srv := agentsim.New(&agentsim.Config{
		Host:      host,
		Port:      port,
		Latency:   latency,
		FailRate:  failRate,
		Advertise: advertise,
		Instance:  instance,
		Version:   version.Version,
	}, agentsim.NewHandler(store))

	if err := srv.Listen(); err != nil {
		return err
	}
	fmt.Printf("Agent simulator listening on %s\n", srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Stopping agent simulator...")
		return srv.Shutdown(context.Background())
	})
	if recordInputs {
		g.Go(func() error {
			return agentsim.NewRecorder(store).Run(gctx)
		})
	}

	// Serve returns nil once Shutdown closes the listener; stop the rest too
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openStore(ctx context.Context) (agentsim.Store, error) {
	if dbPath == "" {
		logging.Info("Using in-memory settings")
		return agentsim.NewMemoryStore(), nil
	}

	store, err := agentsim.OpenSQLiteStore(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logging.Info("Using SQLite settings", zap.String("path", store.Path()))
	return store, nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartidler-agentsim %s\n", version.Full())
	},
}
