package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/cachefile"
)

func newCompressCmd(a *app) *cobra.Command {
	var (
		out   string
		level int
	)
	cmd := &cobra.Command{
		Use:   "compress <file>",
		Short: "Compress a cache file in place or to --output",
		Long: `Compress a cache file for an engine target where compression is optional.
Files that are already compressed are copied unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("level") {
				level = a.cfg.Build.CompressionLevel
			}
			return a.convert(cmd, args[0], out, func(data []byte) ([]byte, error) {
				return cachefile.Compress(data, level)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite the input)")
	cmd.Flags().IntVar(&level, "level", cachefile.DefaultCompressionLevel, "Compression level (-1 for the codec default)")
	return cmd
}

func newDecompressCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "decompress <file>",
		Short: "Decompress a cache file in place or to --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd, args[0], out, cachefile.Decompress)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite the input)")
	return cmd
}

func (a *app) convert(cmd *cobra.Command, in, out string, fn func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	converted, err := fn(data)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if out == "" {
		out = in
	}
	if err := os.WriteFile(out, converted, 0o644); err != nil {
		return err
	}
	a.logger.Info("converted cache file", "input", in, "output", out, "from", len(data), "to", len(converted))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d bytes\n", out, len(data), len(converted))
	return nil
}
