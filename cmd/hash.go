package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/auplugins/plugin"
)

var hashCmd = &cobra.Command{
	Use:   "hash <plugin-id> <url>...",
	Short: "Hash stored content through the plugin's filters",
	Long: `Hash the stored content of each URL after the plugin's hash filters for
its content type have removed volatile parts (sidebars, counters, PDF
timestamps). Two copies of a page that differ only in those parts hash the
same.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plugin.Get(args[0])
		if err != nil {
			return err
		}
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		for _, u := range args[1:] {
			h, err := p.Hash(cmd.Context(), st, u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h, u)
		}
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <plugin-id> <url>...",
	Short: "Print the plugin's normalized form of URLs",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := targets(args[:1])
		if err != nil {
			return err
		}
		t := ts[0]
		for _, u := range args[1:] {
			fmt.Fprintln(cmd.OutOrStdout(), t.plugin.NormalizeURL(u, t.config))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
	addStoreFlag(hashCmd)

	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringArrayVarP(&auParams, "param", "p", nil, "AU parameter as key=value (repeatable)")
}
