package cli

import (
	"github.com/spf13/cobra"
)

var (
	startURL     string
	outputFile   string
	listingLinks []string
)

func init() {
	rootCmd.AddCommand(listingsCmd)
	listingsCmd.Flags().StringVar(&startURL, "url", "", "search results URL to start from")
	listingsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "CSV file to append to (default <date>_listings.csv)")
	listingsCmd.Flags().StringSliceVar(&listingLinks, "listing", nil, "listing URL to visit directly; skips the results pages")
}

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Collects host and permit of every listing in the search results.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if outputFile != "" {
			cfg.Listings.Filename = outputFile
		}
		a, done, err := setup(cmd, cfg)
		if err != nil {
			return err
		}
		defer done()

		res, err := a.RunListings(cmd.Context(), startURL, listingLinks)
		if res != nil {
			renderListings(cmd.OutOrStdout(), res)
		}
		return err
	},
}
