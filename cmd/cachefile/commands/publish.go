package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	orasregistry "oras.land/oras-go/v2/registry"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/internal/config"
	"github.com/meigma/cachefile/internal/output"
	"github.com/meigma/cachefile/registry"
	orasclient "github.com/meigma/cachefile/registry/oras"
)

// registryClient builds a registry client for ref from the configuration.
func (a *app) registryClient(ref string) (*registry.Client, error) {
	parsed, err := orasregistry.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrInvalidReference, err)
	}
	rc := a.cfg.Registry
	opts := []registry.Option{registry.WithLogger(a.logger)}
	if rc.CacheDir != "" {
		lc, err := a.layerCache()
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithLayerCache(lc))
	}
	if rc.OCILayout != "" {
		layout, err := orasclient.NewLayout(rc.OCILayout)
		if err != nil {
			return nil, err
		}
		return registry.New(append(opts, registry.WithOCIClient(layout))...), nil
	}
	orasOpts := []orasclient.Option{
		orasclient.WithPlainHTTP(rc.PlainHTTP),
		orasclient.WithUserAgent("cachefile/" + Version),
	}
	switch {
	case rc.Username != "":
		orasOpts = append(orasOpts, orasclient.WithStaticCredentials(parsed.Registry, rc.Username, rc.Password))
	case rc.DockerConfig:
		orasOpts = append(orasOpts, orasclient.WithDockerConfig())
	default:
		orasOpts = append(orasOpts, orasclient.WithAnonymous())
	}
	return registry.New(append(opts, registry.WithOrasOptions(orasOpts...))...), nil
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		resourceMaps string
		tags         []string
		annotations  map[string]string
		withManifest string
	)
	cmd := &cobra.Command{
		Use:   "publish <file> <reference>",
		Short: "Push a cache file and its resource maps to an OCI registry",
		Long: `Push a cache file as an OCI artifact. The build manifest is generated from
the file unless --build-manifest points at one written by "cachefile build
--manifest", which keeps the build statistics. Resource maps from
--resource-maps are pushed as extra layers.

Example:
  cachefile publish bloodgulch.map ghcr.io/acme/maps/bloodgulch:v1 --resource-maps ./maps`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, ref := args[0], args[1]
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			rm := &cachefile.ResourceMaps{}
			if resourceMaps != "" {
				if rm, err = cachefile.ReadResourceMaps(resourceMaps); err != nil {
					return err
				}
			}

			var man *manifest.Manifest
			if withManifest != "" {
				raw, err := os.ReadFile(withManifest)
				if err != nil {
					return err
				}
				if man, err = manifest.Parse(raw); err != nil {
					return fmt.Errorf("%s: %w", withManifest, err)
				}
			} else {
				opts := append(rm.LoadOptions(), mapfile.WithLogger(a.logger), mapfile.WithVerifyCRC(a.cfg.Load.VerifyCRC))
				if man, err = cachefile.Describe(data, opts...); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
			}

			client, err := a.registryClient(ref)
			if err != nil {
				return err
			}
			art := &registry.Artifact{
				Name:      filepath.Base(file),
				Cache:     data,
				Manifest:  man,
				Resources: rm.Raw,
			}
			desc, err := client.Push(cmd.Context(), ref, art,
				registry.WithTags(tags...),
				registry.WithAnnotations(annotations),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s\nDigest: %s\n", ref, desc.Digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&resourceMaps, "resource-maps", "", "Directory holding resource maps to publish alongside")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Additional tags to apply")
	cmd.Flags().StringToStringVar(&annotations, "annotation", nil, "Manifest annotation key=value")
	cmd.Flags().StringVar(&withManifest, "build-manifest", "", "Build manifest to publish instead of generating one")
	return cmd
}

func newPullCmd(a *app) *cobra.Command {
	var (
		dir              string
		withoutResources bool
		maxLayerSize     string
	)
	cmd := &cobra.Command{
		Use:   "pull <reference>",
		Short: "Download a published cache file and its resource maps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := a.cfg.Registry.MaxLayerSize
			if cmd.Flags().Changed("max-layer-size") {
				n, err := config.ParseByteSize(maxLayerSize)
				if err != nil {
					return err
				}
				limit = n
			}
			opts := []registry.PullOption{registry.WithMaxLayerSize(int64(limit))}
			if withoutResources {
				opts = append(opts, registry.WithoutResources())
			}

			client, err := a.registryClient(args[0])
			if err != nil {
				return err
			}
			art, err := client.Pull(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(dir, filepath.Base(art.Name))
			if err := os.WriteFile(path, art.Cache, 0o644); err != nil {
				return err
			}
			if err := cachefile.WriteResourceMaps(dir, art.Resources); err != nil {
				return err
			}
			a.logger.Info("pulled cache file", "ref", args[0], "path", path, "resources", len(art.Resources))
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d tags)\n", path, art.Manifest.Profile, len(art.Manifest.Tags))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "Directory to write into")
	cmd.Flags().BoolVar(&withoutResources, "without-resources", false, "Skip resource map layers")
	cmd.Flags().StringVar(&maxLayerSize, "max-layer-size", "", "Refuse layers larger than this")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var tags bool
	cmd := &cobra.Command{
		Use:   "inspect <reference>",
		Short: "Describe a published cache file without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.registryClient(args[0])
			if err != nil {
				return err
			}
			info, err := client.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pr, err := a.printer(cmd)
			if err != nil {
				return err
			}
			v := newInspectView(info, tags)
			if pr.Format() == output.FormatTable {
				return v.render(cmd.OutOrStdout())
			}
			return pr.Print(v)
		},
	}
	cmd.Flags().BoolVar(&tags, "tags", false, "List every tag")
	return cmd
}

func newTagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <reference> <digest>",
		Short: "Point a tag at an already published cache file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.registryClient(args[0])
			if err != nil {
				return err
			}
			if err := client.Tag(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s\n", args[0])
			return nil
		},
	}
}
