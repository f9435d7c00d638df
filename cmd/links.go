package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var linksCmd = &cobra.Command{
	Use:   "links <plugin-id> <page-url>...",
	Short: "Extract in-scope links from stored pages",
	Long: `Parse stored HTML pages and print the links a crawl of the AU would
follow: resolved, normalized, deduplicated and filtered by the plugin's
crawl rules.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := targets(args[:1])
		if err != nil {
			return err
		}
		t := ts[0]
		le, err := t.plugin.LinkExtractor(t.config)
		if err != nil {
			return err
		}
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		for _, page := range args[1:] {
			rc, err := st.Open(cmd.Context(), page)
			if err != nil {
				return err
			}
			found, err := le.Extract(cmd.Context(), page, rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", page, err)
			}
			for _, u := range found {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linksCmd)
	linksCmd.Flags().StringArrayVarP(&auParams, "param", "p", nil, "AU parameter as key=value (repeatable)")
	addStoreFlag(linksCmd)
}
