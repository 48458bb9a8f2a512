package cmd

import (
	"github.com/Sternrassler/sec-edgar-client/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve EDGAR lookups, health and Prometheus metrics over HTTP",
	Long: `Start an HTTP server with:

  GET /health                               liveness
  GET /metrics                              Prometheus metrics
  GET /v1/submissions/{company}?paginate=1  submissions document
  GET /v1/facts/{company}                   company facts document
  GET /v1/concept/{company}/{taxonomy}/{tag}

All lookups share one request budget; configure redis.addr to share it
across several server instances. Ctrl+C or SIGTERM shuts down gracefully.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		addr := cfg.Serve.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(c, addr).Run(cmd.Context(), cfg.Serve.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr)")
}
