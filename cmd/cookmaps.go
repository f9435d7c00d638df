package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/auplugins/mapping"
)

var cookmapsCmd = &cobra.Command{
	Use:   "cookmaps",
	Short: "Inspect metadata cook maps",
	Long:  `List and inspect the cook maps that turn raw document keys into record fields.`,
}

var cookmapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available cook maps",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := mapping.Default()
		if err != nil {
			return err
		}
		t := newTable("NAME", "RULES", "DESCRIPTION")
		for _, name := range registry.List() {
			cm, _ := registry.Get(name)
			t.add(name, fmt.Sprint(len(cm.Rules)), cm.Description)
		}
		t.write(cmd.OutOrStdout())
		return nil
	},
}

var cookmapsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a cook map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := mapping.Lookup(args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cm)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cookmapsCmd)
	cookmapsCmd.AddCommand(cookmapsListCmd)
	cookmapsCmd.AddCommand(cookmapsShowCmd)
}
