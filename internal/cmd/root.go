// Package cmd implements the edgar command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/sec-edgar-client/internal/config"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	verbose bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "edgar",
	Short: "Download filings and company facts from SEC EDGAR",
	Long: `edgar downloads filings, company facts and bulk archives from SEC EDGAR
while staying within its fair-access request limit.

EDGAR requires every caller to identify itself. Set user_agent.company and
user_agent.email in edgar.yaml, or EDGAR_USER_AGENT_COMPANY and
EDGAR_USER_AGENT_EMAIL in the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, envFile)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = string(logging.LevelDebug)
		}
		level, _ := logging.ParseLevel(loaded.Log.Level)
		logging.Setup(logging.Config{
			Level:  level,
			Pretty: loaded.Log.Pretty,
			Output: os.Stderr,
		})
		cfg = loaded
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops downloads, extraction, watch and serve cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./edgar.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file exported before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	rootCmd.AddCommand(downloadCmd, factsCmd, bulkCmd, watchCmd, serveCmd)
}
