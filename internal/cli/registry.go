package cli

import (
	"github.com/spf13/cobra"
)

var (
	activities  []string
	downloadDir string
)

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.Flags().StringSliceVarP(&activities, "activity", "a", nil, "activity to export (repeatable, default all four)")
	registryCmd.Flags().StringVar(&downloadDir, "download-dir", "", "directory the exports are downloaded into")
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Exports the tourism registry to one spreadsheet per activity.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if downloadDir != "" {
			cfg.Browser.DownloadDir = downloadDir
		}
		a, done, err := setup(cmd, cfg)
		if err != nil {
			return err
		}
		defer done()

		results, err := a.RunRegistry(cmd.Context(), activities)
		renderExports(cmd.OutOrStdout(), results)
		return err
	},
}
