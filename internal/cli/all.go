package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(allCmd)
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Runs the listings and registry pipelines, each with its own browser.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, done, err := setup(cmd, cfg)
		if err != nil {
			return err
		}
		defer done()

		res, listingsErr := a.RunListings(cmd.Context(), "", nil)
		if res != nil {
			renderListings(cmd.OutOrStdout(), res)
		}
		if cmd.Context().Err() != nil {
			return listingsErr
		}

		results, registryErr := a.RunRegistry(cmd.Context(), nil)
		renderExports(cmd.OutOrStdout(), results)
		return errors.Join(listingsErr, registryErr)
	},
}
