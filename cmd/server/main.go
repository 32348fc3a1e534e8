/*
main.go - Application entry point

PURPOSE:
  Starts the hedging desk server and offers calculator subcommands for
  the terminal. Handles configuration, dependency injection, and graceful
  shutdown.

COMMANDS:
  serve      Run the HTTP API (default when no command is given)
  coverage   Print the coverage projection of a payment schedule
  rut        Validate and format RUTs

STARTUP SEQUENCE (serve):
  1. Load .env, config file, HEDGE_* variables and flags
  2. Initialize SQLite store
  3. Pick the summary cache (Redis when redis_addr is set, else memory)
  4. Build request.Service and the API handler
  5. Start the expiry scheduler
  6. Start the HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close cache and database connections

EXAMPLES:
  # Run with file database
  ./server serve --db ./data/hedge.db

  # Run with in-memory database and shared cache
  HEDGE_REDIS_ADDR=localhost:6379 ./server serve --db :memory:

  # Calculator
  ./server coverage --usd 12500 --reference 800 \
      --payment DOWN_PAYMENT:4000000 --payment FINANCING:6000000

SEE ALSO:
  - config/config.go: configuration keys
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/warp/hedge-desk/config"
)

var (
	cfgFile string
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "hedge-desk",
	Short: "Currency hedging requests and coverage calculator",
	Long: `hedge-desk manages USD/CLP forward cover requests for vehicle deals:
sellers enter the payment schedule, administrators compare bank quotes and
approve covers, and the dashboard summarises the hedged book.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./hedge.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	// Flags left at their default do not override file or environment values.
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd, coverageCmd, rutCmd)
}

// initConfig loads the .env file before viper reads the environment.
func initConfig(_ *cobra.Command, _ []string) error {
	return config.LoadDotEnv()
}

func loadConfig() (config.Config, error) {
	return config.Load(v, cfgFile)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
