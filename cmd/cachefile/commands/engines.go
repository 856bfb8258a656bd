package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/engine"
)

type engineView struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Engine       string `json:"engine" yaml:"engine"`
	Build        string `json:"build" yaml:"build"`
	BaseAddress  string `json:"base_address,omitempty" yaml:"base_address,omitempty"`
	TagSpace     uint64 `json:"tag_space" yaml:"tag_space"`
	Compression  string `json:"compression" yaml:"compression"`
	Optional     bool   `json:"compression_optional" yaml:"compression_optional"`
	PointerSize  int    `json:"pointer_size" yaml:"pointer_size"`
	ResourceMaps bool   `json:"resource_maps" yaml:"resource_maps"`
}

type engineList []engineView

func (l engineList) Headers() []string {
	return []string{"ID", "Name", "Engine", "Build", "Base", "Compression", "Resource Maps"}
}

func (l engineList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		compression := e.Compression
		if e.Optional {
			compression += " (optional)"
		}
		base := e.BaseAddress
		if base == "" {
			base = "-"
		}
		rows = append(rows, []string{e.ID, e.Name, e.Engine, e.Build, base, compression, strconv.FormatBool(e.ResourceMaps)})
	}
	return rows
}

func newEngineView(p *engine.Profile) engineView {
	v := engineView{
		ID:           p.ID,
		Name:         p.Name,
		Engine:       fmt.Sprintf("0x%X", p.Engine),
		Build:        p.Build,
		TagSpace:     p.TagSpace,
		Compression:  p.Compression.String(),
		Optional:     p.CompressionOptional,
		PointerSize:  p.PointerSize,
		ResourceMaps: p.ResourceMaps,
	}
	if !p.PositionIndependent() {
		v.BaseAddress = fmt.Sprintf("0x%X", p.Base())
	}
	return v
}

func newEnginesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List supported engine targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pr, err := a.printer(cmd)
			if err != nil {
				return err
			}
			var list engineList
			for _, p := range cachefile.Profiles() {
				list = append(list, newEngineView(p))
			}
			return pr.Print(list)
		},
	}
}
