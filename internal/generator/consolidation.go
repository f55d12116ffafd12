package generator

import (
	"slices"

	"github.com/agentic-research/roleforge/internal/plugin"
)

// GeneratedFile is a file produced for one role file, directly or by a
// post-processor.
type GeneratedFile struct {
	CanonicalPath string
	// Plugins lists the post-processors that touched the file, in order.
	Plugins []string
	File    *plugin.FileContext
}

// consolidation is the accumulator of the post-processing fold: the
// produced files keyed by canonical path, in first-seen order.
type consolidation struct {
	order []string
	files map[string]GeneratedFile
}

func newConsolidation(file *plugin.FileContext) (consolidation, error) {
	key, err := file.CanonicalPath()
	if err != nil {
		return consolidation{}, err
	}
	return consolidation{
		order: []string{key},
		files: map[string]GeneratedFile{key: {CanonicalPath: key, File: file}},
	}, nil
}

func (c consolidation) clone() consolidation {
	out := consolidation{order: slices.Clone(c.order), files: make(map[string]GeneratedFile, len(c.files))}
	for k, v := range c.files {
		v.Plugins = slices.Clone(v.Plugins)
		out.files[k] = v
	}
	return out
}

func (c consolidation) has(key string) bool {
	_, ok := c.files[key]
	return ok
}

// add returns c with file registered under key if it is not present yet.
func (c consolidation) add(key string, file *plugin.FileContext) consolidation {
	if c.has(key) {
		return c
	}
	c.order = append(c.order, key)
	c.files[key] = GeneratedFile{CanonicalPath: key, File: file}
	return c
}

// touch records that the named plugin produced or processed key.
func (c consolidation) touch(key, pluginName string) {
	rec, ok := c.files[key]
	if !ok || slices.Contains(rec.Plugins, pluginName) {
		return
	}
	rec.Plugins = append(rec.Plugins, pluginName)
	c.files[key] = rec
}

// prune returns c without files that no longer exist on disk.
func (c consolidation) prune() consolidation {
	out := consolidation{files: c.files}
	for _, key := range c.order {
		if c.files[key].File.Exists() {
			out.order = append(out.order, key)
		} else {
			delete(out.files, key)
		}
	}
	return out
}

func (c consolidation) records() []GeneratedFile {
	out := make([]GeneratedFile, len(c.order))
	for i, key := range c.order {
		out[i] = c.files[key]
	}
	return out
}
