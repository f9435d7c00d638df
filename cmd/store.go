package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/auplugins/store"
)

var importPrefix string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage content stores",
}

var storeImportCmd = &cobra.Command{
	Use:   "import <src> <dst>",
	Short: "Copy content between stores",
	Long: `Copy every URL under --prefix from one store into another, e.g. to load a
mirrored directory into SQLite or Redis. Directory stores are laid out by
host, so the prefix must be an absolute URL.

Examples:
  auplugins store import dir:./mirror sqlite:content.db --prefix http://journal.example.edu/
  auplugins store import dir:./mirror redis://localhost:6379/0 --prefix http://journal.example.edu/`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer closeIfCloser(src)
		dst, err := store.Open(args[1])
		if err != nil {
			return err
		}
		defer closeIfCloser(dst)

		w, ok := dst.(store.Writer)
		if !ok {
			return fmt.Errorf("store %s is read-only", args[1])
		}
		n, err := store.Copy(cmd.Context(), w, src, importPrefix)
		slog.Info("imported content", "src", args[0], "dst", args[1], "urls", n)
		return err
	},
}

func closeIfCloser(st store.Store) {
	if c, ok := st.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeImportCmd)
	storeImportCmd.Flags().StringVar(&importPrefix, "prefix", "", "Copy URLs starting with this absolute URL prefix")
	_ = storeImportCmd.MarkFlagRequired("prefix")
}
