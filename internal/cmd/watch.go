package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/sec-edgar-client/internal/output"
	"github.com/Sternrassler/sec-edgar-client/pkg/feed"
	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new filings from the current-filings feed until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		err = c.Watch(cmd.Context(), watchInterval, func(e feed.Entry) {
			output.Entry(cmd.OutOrStdout(), e)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", feed.DefaultInterval, "polling interval")
}
