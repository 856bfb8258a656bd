package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/cachefile/internal/config"
	"github.com/meigma/cachefile/registry/cache"
)

// layerCache opens the configured layer cache.
func (a *app) layerCache() (*cache.Cache, error) {
	rc := a.cfg.Registry
	if rc.CacheDir == "" {
		return nil, errors.New("no layer cache: set registry.cache_dir")
	}
	return cache.New(rc.CacheDir, cache.WithMaxBytes(int64(rc.CacheMaxSize)))
}

type cacheView struct {
	Dir   string `json:"dir" yaml:"dir"`
	Size  string `json:"size" yaml:"size"`
	Limit string `json:"limit" yaml:"limit"`
}

func (v *cacheView) Headers() []string { return []string{"Dir", "Size", "Limit"} }
func (v *cacheView) Rows() [][]string  { return [][]string{{v.Dir, v.Size, v.Limit}} }

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache of pulled layers",
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show the layer cache location and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lc, err := a.layerCache()
			if err != nil {
				return err
			}
			pr, err := a.printer(cmd)
			if err != nil {
				return err
			}
			limit := "unlimited"
			if lc.MaxBytes() > 0 {
				limit = config.ByteSize(lc.MaxBytes()).String()
			}
			return pr.Print(&cacheView{
				Dir:   lc.Dir(),
				Size:  config.ByteSize(lc.SizeBytes()).String(),
				Limit: limit,
			})
		},
	}

	var target string
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove the oldest cached layers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lc, err := a.layerCache()
			if err != nil {
				return err
			}
			var n config.ByteSize
			if target != "" {
				if n, err = config.ParseByteSize(target); err != nil {
					return err
				}
			}
			freed, err := lc.Prune(int64(n))
			if err != nil {
				return err
			}
			a.logger.Info("pruned layer cache", "dir", lc.Dir(), "freed", freed)
			fmt.Fprintf(cmd.OutOrStdout(), "Freed %s, %s remaining\n", config.ByteSize(freed), config.ByteSize(lc.SizeBytes()))
			return nil
		},
	}
	pruneCmd.Flags().StringVar(&target, "target", "", "Prune down to this size (default: empty the cache)")

	cmd.AddCommand(infoCmd, pruneCmd)
	return cmd
}
