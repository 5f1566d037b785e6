package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/filter"
)

func newSearchCmd() *cobra.Command {
	var quick string

	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Search listings",
		Long: "Search listings by free text across title, description and address fields, newest first.\n" +
			"Quick filters: near-university, economic, furnished, wifi, studio.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), quick)
		},
	}

	cmd.Flags().StringVar(&quick, "filter", "", "quick filter to apply")

	return cmd
}

func runSearch(cmd *cobra.Command, text, quickFlag string) error {
	quick, err := filter.ParseQuickFilter(quickFlag)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	page, err := a.listings.Search(ctx, text, quick)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, page)
	}
	if quick != filter.QuickNone {
		printFilterLine(out, quick)
	}
	return printListingTable(ctx, out, page.Items, a.savedIDs())
}

func printFilterLine(w io.Writer, q filter.QuickFilter) {
	fmt.Fprintf(w, "Filter: %s\n\n", q.Label())
}
