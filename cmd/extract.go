package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/auplugins/metadata"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract [plugin-id]",
	Short: "Extract article metadata from an AU as JSON lines",
	Long: `Iterate the articles of one or more AUs and write one JSON object per
article. Each line carries the cooked record fields plus "au" and "plugin".

Examples:
  auplugins extract nz.org.nzma.journal -s dir:./mirror -p base_url=https://www.nzma.example.org/ -p year=2014 > nzma.jsonl
  auplugins extract --aus aus.yaml -s redis://localhost:6379/0 -o records.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	ts, err := targets(args)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var w io.Writer = cmd.OutOrStdout()
	if extractOutput != "" && extractOutput != "-" {
		f, err := os.Create(extractOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	em := metadata.NewJSONLinesEmitter(w)
	for _, t := range ts {
		em.Extra = map[string]string{"au": t.config.String(), "plugin": t.plugin.ID}
		stats, err := t.plugin.ExtractAll(cmd.Context(), t.config, st, em)
		if err != nil {
			_ = em.Flush()
			return fmt.Errorf("%s: %w", t.config, err)
		}
		slog.Info("extracted AU", "au", t.config.String(), "records", stats.Emitted, "skipped", stats.Skipped())
	}
	return em.Flush()
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addAUFlags(extractCmd)
	addStoreFlag(extractCmd)
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file (default: stdout)")
}
