package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/internal/output"
)

func newInfoCmd(a *app) *cobra.Command {
	var (
		tags         bool
		resourceMaps string
		verifyCRC    bool
	)
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Describe a cache file or build manifest",
		Long: `Load a cache file and print its header, engine target and tag count.

Files ending in .manifest are read as build manifests instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var man *manifest.Manifest
			if filepath.Ext(args[0]) == ".manifest" {
				man, err = manifest.Parse(data)
			} else {
				if !cmd.Flags().Changed("verify-crc") {
					verifyCRC = a.cfg.Load.VerifyCRC
				}
				opts := []mapfile.Option{mapfile.WithLogger(a.logger), mapfile.WithVerifyCRC(verifyCRC)}
				if resourceMaps != "" {
					rm, err := cachefile.ReadResourceMaps(resourceMaps)
					if err != nil {
						return err
					}
					opts = append(opts, rm.LoadOptions()...)
				}
				man, err = cachefile.Describe(data, opts...)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			pr, err := a.printer(cmd)
			if err != nil {
				return err
			}
			v := newManifestView(man, tags)
			if pr.Format() == output.FormatTable {
				return v.render(cmd.OutOrStdout())
			}
			return pr.Print(v)
		},
	}
	cmd.Flags().BoolVar(&tags, "tags", false, "List every tag")
	cmd.Flags().StringVar(&resourceMaps, "resource-maps", "", "Directory holding the resource maps indexed tags live in")
	cmd.Flags().BoolVar(&verifyCRC, "verify-crc", true, "Check tag data against the header CRC32")
	return cmd
}
