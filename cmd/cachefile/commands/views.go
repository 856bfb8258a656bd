package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/internal/output"
	"github.com/meigma/cachefile/registry"
)

type buildView struct {
	File          string `json:"file" yaml:"file"`
	Name          string `json:"name" yaml:"name"`
	Engine        string `json:"engine" yaml:"engine"`
	Type          string `json:"scenario_type" yaml:"scenario_type"`
	Size          int    `json:"size" yaml:"size"`
	Tags          int    `json:"tags" yaml:"tags"`
	Indexed       int    `json:"indexed" yaml:"indexed"`
	Structs       int    `json:"structs" yaml:"structs"`
	DedupeSavings int    `json:"dedupe_savings" yaml:"dedupe_savings"`
	CRC32         string `json:"crc32" yaml:"crc32"`
}

func newBuildView(file, engineID string, res *cachefile.Result) *buildView {
	return &buildView{
		File:          file,
		Name:          res.Header.Name,
		Engine:        engineID,
		Type:          res.Header.Type.String(),
		Size:          len(res.Data),
		Tags:          len(res.Tags),
		Indexed:       res.Indexed,
		Structs:       res.Structs,
		DedupeSavings: res.DedupeSavings,
		CRC32:         fmt.Sprintf("0x%08X", res.Header.CRC32),
	}
}

func (v *buildView) Headers() []string {
	return []string{"File", "Engine", "Tags", "Indexed", "Size", "Dedupe Savings", "CRC32"}
}

func (v *buildView) Rows() [][]string {
	return [][]string{{
		v.File, v.Engine, strconv.Itoa(v.Tags), strconv.Itoa(v.Indexed),
		strconv.Itoa(v.Size), strconv.Itoa(v.DedupeSavings), v.CRC32,
	}}
}

type tagView struct {
	Index   int    `json:"index" yaml:"index"`
	Path    string `json:"path" yaml:"path"`
	Class   string `json:"class" yaml:"class"`
	Indexed bool   `json:"indexed,omitempty" yaml:"indexed,omitempty"`
}

// manifestView is the printable form of a build manifest.
type manifestView struct {
	Name          string    `json:"name" yaml:"name"`
	Profile       string    `json:"profile" yaml:"profile"`
	Engine        string    `json:"engine" yaml:"engine"`
	Build         string    `json:"build" yaml:"build"`
	Type          string    `json:"scenario_type" yaml:"scenario_type"`
	Compression   string    `json:"compression" yaml:"compression"`
	CRC32         string    `json:"crc32" yaml:"crc32"`
	TagDataSize   uint64    `json:"tag_data_size" yaml:"tag_data_size"`
	FileSize      uint64    `json:"file_size" yaml:"file_size"`
	Structs       int       `json:"structs,omitempty" yaml:"structs,omitempty"`
	DedupeSavings int       `json:"dedupe_savings,omitempty" yaml:"dedupe_savings,omitempty"`
	TagCount      int       `json:"tag_count" yaml:"tag_count"`
	Indexed       int       `json:"indexed" yaml:"indexed"`
	Digest        string    `json:"digest" yaml:"digest"`
	Tags          []tagView `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func newManifestView(man *manifest.Manifest, withTags bool) *manifestView {
	v := &manifestView{
		Name:          man.Name,
		Profile:       man.Profile,
		Engine:        fmt.Sprintf("0x%X", man.Engine),
		Build:         man.Build,
		Type:          man.Type.String(),
		Compression:   man.Compression.String(),
		CRC32:         fmt.Sprintf("0x%08X", man.CRC32),
		TagDataSize:   man.TagDataSize,
		FileSize:      man.FileSize,
		Structs:       man.Structs,
		DedupeSavings: man.DedupeSavings,
		TagCount:      len(man.Tags),
		Indexed:       man.Indexed(),
		Digest:        man.Digest.String(),
	}
	if withTags {
		v.Tags = make([]tagView, 0, len(man.Tags))
		for i, e := range man.Tags {
			v.Tags = append(v.Tags, tagView{Index: i, Path: e.Path, Class: e.Class.Extension(), Indexed: e.Indexed})
		}
	}
	return v
}

func (v *manifestView) pairs() [][2]string {
	return [][2]string{
		{"Name", v.Name},
		{"Engine", fmt.Sprintf("%s (%s)", v.Profile, v.Engine)},
		{"Build", v.Build},
		{"Scenario type", v.Type},
		{"Compression", v.Compression},
		{"CRC32", v.CRC32},
		{"Tag data", strconv.FormatUint(v.TagDataSize, 10)},
		{"File size", strconv.FormatUint(v.FileSize, 10)},
		{"Tags", fmt.Sprintf("%d (%d indexed)", v.TagCount, v.Indexed)},
		{"Digest", v.Digest},
	}
}

// render writes the table form: a summary and, when present, the tag list.
func (v *manifestView) render(w io.Writer) error {
	if err := output.SimpleTable(w, v.pairs()); err != nil {
		return err
	}
	if len(v.Tags) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	td := output.NewTableData("#", "Class", "Path", "Indexed")
	for _, t := range v.Tags {
		indexed := ""
		if t.Indexed {
			indexed = "yes"
		}
		td.AddRow(strconv.Itoa(t.Index), t.Class, t.Path, indexed)
	}
	return output.PrintTable(w, td)
}

// inspectView is the printable form of a published artifact.
type inspectView struct {
	Digest      string            `json:"digest" yaml:"digest"`
	Created     string            `json:"created,omitempty" yaml:"created,omitempty"`
	CacheSize   int64             `json:"cache_size" yaml:"cache_size"`
	Resources   []string          `json:"resources,omitempty" yaml:"resources,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Manifest    *manifestView     `json:"manifest" yaml:"manifest"`
}

func newInspectView(info *registry.Info, withTags bool) *inspectView {
	v := &inspectView{
		Digest:      info.Descriptor.Digest.String(),
		CacheSize:   info.CacheSize,
		Annotations: info.Annotations,
		Manifest:    newManifestView(info.Manifest, withTags),
	}
	if !info.Created.IsZero() {
		v.Created = info.Created.UTC().Format(time.RFC3339)
	}
	for _, t := range info.Resources {
		v.Resources = append(v.Resources, t.String())
	}
	return v
}

func (v *inspectView) render(w io.Writer) error {
	resources := strings.Join(v.Resources, ", ")
	if resources == "" {
		resources = "none"
	}
	pairs := [][2]string{
		{"Digest", v.Digest},
		{"Created", v.Created},
		{"Cache size", strconv.FormatInt(v.CacheSize, 10)},
		{"Resource maps", resources},
	}
	if err := output.SimpleTable(w, pairs); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return v.Manifest.render(w)
}
