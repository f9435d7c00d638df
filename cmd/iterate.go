package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/auplugins/iterator"
)

var iterateCmd = &cobra.Command{
	Use:   "iterate [plugin-id]",
	Short: "List the articles of an AU",
	Long: `Group the stored URLs of one or more AUs into articles and print each
article's full-text URL and roles.

Examples:
  auplugins iterate org.pkp.ojs -s dir:./mirror -p base_url=http://journal.example.edu/ -p journal_id=jmla -p year=2014
  auplugins iterate --aus aus.yaml -s sqlite:content.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIterate,
}

func runIterate(cmd *cobra.Command, args []string) error {
	ts, err := targets(args)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	for _, t := range ts {
		it, err := t.plugin.NewIterator(t.config, st)
		if err != nil {
			return fmt.Errorf("%s: %w", t.config, err)
		}
		tbl := newTable("FULL TEXT", "ROLES")
		err = it.Each(cmd.Context(), func(af *iterator.ArticleFiles) error {
			var roles []string
			for _, r := range af.Roles() {
				roles = append(roles, r+"="+af.RoleURL(r))
			}
			tbl.add(af.FullTextURL, strings.Join(roles, " "))
			return nil
		})
		if err != nil {
			return err
		}
		if len(ts) > 1 {
			fmt.Fprintf(out, "\n# %s\n", t.config)
		}
		tbl.write(out)

		s := it.Stats()
		slog.Info("iterated AU",
			"au", t.config.String(),
			"scanned", s.Scanned,
			"emitted", s.Emitted,
			"out_of_scope", s.OutOfScope,
			"unmatched", s.Unmatched,
			"sentinel", s.SentinelSkipped,
			"duplicate", s.DuplicateSkipped,
			"incomplete", s.Incomplete,
		)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(iterateCmd)
	addAUFlags(iterateCmd)
	addStoreFlag(iterateCmd)
}
