package cmd

import (
	"fmt"

	"github.com/Sternrassler/sec-edgar-client/internal/output"
	"github.com/spf13/cobra"
)

var factsSkipExisting bool

var factsCmd = &cobra.Command{
	Use:   "facts COMPANY...",
	Short: "Download the company facts document of each company",
	Long: `Save the company facts JSON of each company as
{download_folder}/sec-edgar-facts/{SYMBOL}-facts-{DATE}.json.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		result := c.DownloadFactsForCompanies(cmd.Context(), args, factsSkipExisting)
		output.Batch(cmd.OutOrStdout(), "Company facts", result)
		if len(result.Skipped) > 0 {
			return fmt.Errorf("%d companies skipped", len(result.Skipped))
		}
		return nil
	},
}

func init() {
	factsCmd.Flags().BoolVar(&factsSkipExisting, "skip-existing", true, "leave companies already saved today alone")
}
