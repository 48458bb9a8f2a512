package cmd

import (
	"fmt"

	"github.com/Sternrassler/sec-edgar-client/internal/output"
	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/spf13/cobra"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Work with the nightly bulk archives",
}

var bulkSubmissions bool

var bulkDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download today's company facts (or submissions) archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		download := c.DownloadFactsArchive
		if bulkSubmissions {
			download = c.DownloadSubmissionsArchive
		}
		path, err := download(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var bulkWorkers int

var bulkExtractCmd = &cobra.Command{
	Use:   "extract [ARCHIVE]",
	Short: "Write one facts table per company from a facts archive",
	Long: `Normalize every company in a facts archive into
{download_folder}/sec-edgar-facts/{SYMBOL}_facts-{DATE}.{FORMAT}.
Without ARCHIVE the most recent downloaded archive is used. Tables that
already exist are skipped, so an interrupted run can simply be repeated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		archive := ""
		if len(args) == 1 {
			archive = args[0]
		}
		workers := bulkWorkers
		if workers == 0 {
			workers = cfg.Extract.Workers
		}

		summary, err := c.ExtractAllFacts(cmd.Context(), archive, workers)
		if summary.RunID != "" {
			output.Summary(cmd.OutOrStdout(), summary)
		}
		return err
	},
}

var bulkQueryFlags struct {
	archive string
	key     facts.Key
	rows    int
}

var bulkQueryCmd = &cobra.Command{
	Use:   "query COMPANY",
	Short: "Show the facts of one company straight from a facts archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		table, err := c.QueryFacts(cmd.Context(), bulkQueryFlags.archive, args[0])
		if err != nil {
			return err
		}
		output.Facts(cmd.OutOrStdout(), table, bulkQueryFlags.key, bulkQueryFlags.rows)
		return nil
	},
}

func init() {
	bulkDownloadCmd.Flags().BoolVar(&bulkSubmissions, "submissions", false, "download the submissions archive instead")
	bulkExtractCmd.Flags().IntVarP(&bulkWorkers, "workers", "w", 0, "worker count (default extract.workers, capped at CPUs minus 6)")

	f := bulkQueryCmd.Flags()
	f.StringVar(&bulkQueryFlags.archive, "archive", "", "facts archive (default most recent)")
	f.StringVar(&bulkQueryFlags.key.Taxonomy, "taxonomy", "", "only this taxonomy, e.g. us-gaap")
	f.StringVar(&bulkQueryFlags.key.Tag, "tag", "", "only this tag, e.g. Revenues")
	f.StringVar(&bulkQueryFlags.key.Unit, "unit", "", "only this unit, e.g. USD")
	f.StringVar(&bulkQueryFlags.key.Field, "field", "val", "only this field (empty for all)")
	f.IntVar(&bulkQueryFlags.rows, "rows", 5, "events shown per column (0 for all)")

	bulkCmd.AddCommand(bulkDownloadCmd, bulkExtractCmd, bulkQueryCmd)
}
