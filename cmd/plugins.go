package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/auplugins/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List, inspect and validate plugins",
	Long: `List and inspect registered publisher plugins, and validate plugin
definition files before they are deployed.

Examples:
  auplugins plugins list
  auplugins plugins show org.pkp.ojs
  auplugins plugins validate ./definitions/*.yaml`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := plugin.List()
		if len(ids) == 0 {
			fmt.Println("No plugins registered")
			return nil
		}
		t := newTable("ID", "PUBLISHER", "NAME")
		for _, id := range ids {
			p := plugin.MustGet(id)
			t.add(p.ID, p.Publisher, p.Name)
		}
		t.write(cmd.OutOrStdout())
		return nil
	},
}

var pluginsShowCmd = &cobra.Command{
	Use:   "show <plugin-id>",
	Short: "Show a plugin's parameters, crawl rules and article layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plugin.Get(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s\n", p.ID)
		if p.Name != "" {
			fmt.Fprintf(out, "  Name:      %s\n", p.Name)
		}
		if p.Publisher != "" {
			fmt.Fprintf(out, "  Publisher: %s\n", p.Publisher)
		}

		fmt.Fprintln(out, "\nParameters:")
		t := newTable("KEY", "TYPE", "REQUIRED", "DESCRIPTION")
		for _, d := range p.Params {
			typ := d.Type
			if typ == "" {
				typ = plugin.ParamString
			}
			desc := d.DisplayName
			if d.Description != "" {
				desc = d.Description
			}
			t.add(d.Key, typ, fmt.Sprint(d.Required), desc)
		}
		t.write(out)

		fmt.Fprintln(out, "\nStart URLs:")
		for _, s := range p.StartURLs {
			fmt.Fprintf(out, "  %s\n", s)
		}

		fmt.Fprintln(out, "\nCrawl rules:")
		for _, r := range p.Rules {
			verb := "exclude"
			if r.Include {
				verb = "include"
			}
			fmt.Fprintf(out, "  %-8s %s\n", verb, r.Pattern)
		}

		fmt.Fprintln(out, "\nArticle iterator:")
		spec, err := yaml.Marshal(p.Iterator)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(strings.TrimRight(string(spec), "\n"), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}

		fmt.Fprintln(out, "\nMetadata extractors:")
		mimes := make([]string, 0, len(p.Metadata))
		for mt := range p.Metadata {
			mimes = append(mimes, mt)
		}
		sort.Strings(mimes)
		for _, mt := range mimes {
			ex := p.Metadata[mt]
			cm := "-"
			if ex.CookMap != nil && ex.CookMap.Name != "" {
				cm = ex.CookMap.Name
			}
			fmt.Fprintf(out, "  %-24s cook map %s, %d hooks, %d override sets\n", mt, cm, len(ex.Hooks), len(ex.Overrides))
		}
		return nil
	},
}

var pluginsValidateCmd = &cobra.Command{
	Use:   "validate [definition.yaml...]",
	Short: "Validate plugin definition files",
	Long: `Validate plugin definition files. Every problem in a file is reported,
not just the first. With no arguments the built-in definitions are checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var defs []*plugin.Definition
		names := args
		if len(args) == 0 {
			embedded, err := plugin.EmbeddedDefinitions()
			if err != nil {
				return err
			}
			for _, d := range embedded {
				defs = append(defs, d)
				names = append(names, d.ID)
			}
		} else {
			for _, path := range args {
				d, err := plugin.LoadDefinition(path)
				if err != nil {
					return err
				}
				defs = append(defs, d)
			}
		}

		failed := 0
		for i, d := range defs {
			if err := d.Validate(); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s\n", names[i])
				for _, line := range strings.Split(err.Error(), "\n") {
					if line = strings.TrimSpace(line); line != "" {
						fmt.Fprintf(os.Stderr, "    %s\n", line)
					}
				}
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s)\n", names[i], d.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d definitions invalid", failed, len(defs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsShowCmd)
	pluginsCmd.AddCommand(pluginsValidateCmd)
}
