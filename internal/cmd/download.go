package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/sec-edgar-client/internal/output"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/spf13/cobra"
)

var downloadFlags struct {
	forms    []string
	limit    int
	after    string
	before   string
	amends   bool
	details  bool
	allForms bool
}

var downloadCmd = &cobra.Command{
	Use:   "download COMPANY...",
	Short: "Download filings of one or more companies",
	Long: `Download the filings of each company (ticker symbol or CIK) into
{download_folder}/sec-edgar-filings/{SYMBOL}-{CIK}/{FORM}/{ACCESSION}/.

Examples:
  edgar download AAPL --form 10-K --limit 5 --details
  edgar download AAPL MSFT 0000789019 --form 10-K,10-Q --after 2020-01-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if downloadFlags.allForms {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(filing.SupportedForms(), "\n"))
			return nil
		}

		params, err := downloadParams(cmd.Flags().Changed("limit"))
		if err != nil {
			return err
		}

		c, closeFn, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if len(args) == 1 {
			n, err := c.DownloadForms(cmd.Context(), args[0], params)
			if n == 0 && err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d filing(s) saved for %s\n", n, strings.ToUpper(args[0]))
			return err
		}

		result := c.DownloadFormsForCompanies(cmd.Context(), args, params)
		output.Batch(cmd.OutOrStdout(), "Filings", result)
		if len(result.Skipped) > 0 {
			return fmt.Errorf("%d entries skipped", len(result.Skipped))
		}
		return nil
	},
}

// downloadParams validates the date flags and an explicit --limit;
// everything else is validated by the request constructor. Leaving --limit
// unset downloads every matching filing.
func downloadParams(limitSet bool) (filing.Params, error) {
	if limitSet && downloadFlags.limit < 1 {
		return filing.Params{}, &filing.ValidationError{
			Field:  "limit",
			Value:  strconv.Itoa(downloadFlags.limit),
			Reason: "must be at least 1",
		}
	}
	after, err := filing.ParseDate("after", downloadFlags.after)
	if err != nil {
		return filing.Params{}, err
	}
	before, err := filing.ParseDate("before", downloadFlags.before)
	if err != nil {
		return filing.Params{}, err
	}
	return filing.Params{
		Forms:           downloadFlags.forms,
		Limit:           downloadFlags.limit,
		After:           after,
		Before:          before,
		IncludeAmends:   downloadFlags.amends,
		DownloadDetails: downloadFlags.details,
	}, nil
}

func init() {
	f := downloadCmd.Flags()
	f.StringSliceVarP(&downloadFlags.forms, "form", "f", nil, "form types to download, e.g. 10-K,10-Q")
	f.IntVarP(&downloadFlags.limit, "limit", "n", 0, "maximum filings per company (default all)")
	f.StringVar(&downloadFlags.after, "after", "", "earliest filing date, YYYY-MM-DD")
	f.StringVar(&downloadFlags.before, "before", "", "latest filing date, YYYY-MM-DD (default today)")
	f.BoolVar(&downloadFlags.amends, "amends", false, "keep amended forms named in --form, e.g. --form 10-K,10-K/A")
	f.BoolVar(&downloadFlags.details, "details", false, "also download the primary document")
	f.BoolVar(&downloadFlags.allForms, "list-forms", false, "list supported form types and exit")
}
