package build

import (
	"context"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/format"
	"github.com/meigma/cachefile/core/tag"
)

// Result is a finished cache file.
type Result struct {
	Data   []byte
	Header *format.Header

	// Tags lists the tag array in order.
	Tags []engine.TagRef
	// Indexed counts tags stored in resource maps.
	Indexed int
	// Structs is the struct count after dedupe.
	Structs int
	// DedupeSavings is the number of bytes removed by dedupe.
	DedupeSavings int
}

// Build compiles the scenario at path for profile p and returns the cache file.
func Build(ctx context.Context, p *engine.Profile, search *tag.SearchPath, scenario string, opts ...Option) (*Result, error) {
	w := NewWorkload(p, search, opts...)
	w.log().Info("building cache file", "scenario", scenario, "engine", p.ID)

	if err := w.CompileScenario(ctx, scenario); err != nil {
		return nil, err
	}
	if err := w.IndexResources(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	if w.cfg.dedupe {
		res.DedupeSavings = w.Dedupe(w.cfg.maxSavings)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	img, err := w.link()
	if err != nil {
		return nil, err
	}
	data, hdr, err := w.write(img)
	if err != nil {
		return nil, err
	}

	res.Data = data
	res.Header = hdr
	res.Structs = len(w.structs)
	res.Tags = make([]engine.TagRef, len(w.tags))
	for i, t := range w.tags {
		res.Tags[i] = engine.TagRef{Path: t.Path, Class: t.Class}
		if t.Indexed {
			res.Indexed++
		}
	}
	w.log().Info("built cache file", "scenario", scenario, "size", len(data), "tags", len(w.tags))
	return res, nil
}
