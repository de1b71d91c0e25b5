// Package metricsexp derives metrics exporters from type descriptors. An
// exporter flattens a typed value into Metric samples: numeric leaves become
// values with dotted names, while strings, booleans, dates, and enums become
// tags inherited by every metric in their enclosing scope.
package metricsexp

import (
	"strings"
)

// Metric is one exported sample: a dotted name, a numeric value, and the tag
// context accumulated from its ancestors.
type Metric struct {
	Name  string
	Value float64
	Tags  map[string]string
}

// Tree is the intermediate form between a value and its flat metric list.
// Tag scopes extend the context for everything beneath them.
type Tree interface {
	collect(tags map[string]string) []Metric
}

type none struct{}

func (none) collect(map[string]string) []Metric { return nil }

type leaf struct {
	name  string
	value float64
}

func (l leaf) collect(tags map[string]string) []Metric {
	return []Metric{{Name: l.name, Value: l.value, Tags: cloneTags(tags)}}
}

type tagged struct {
	tags  map[string]string
	inner Tree
}

func (t tagged) collect(tags map[string]string) []Metric {
	merged := cloneTags(tags)
	for k, v := range t.tags {
		merged[k] = v
	}
	return t.inner.collect(merged)
}

type branch struct {
	children []Tree
}

func (b branch) collect(tags map[string]string) []Metric {
	var out []Metric
	for _, c := range b.children {
		out = append(out, c.collect(tags)...)
	}
	return out
}

func cloneTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// Exporter is the artifact kind this package derives.
type Exporter interface {
	// Tags returns the tags v contributes to the scope that contains it.
	Tags(path []string, v any) (map[string]string, error)

	// Export returns the metric tree for v rooted at path.
	Export(path []string, v any) (Tree, error)
}

// Collect flattens a value into its metric samples under the given root
// name.
func Collect(exp Exporter, name string, v any) ([]Metric, error) {
	path := []string{name}
	tags, err := exp.Tags(path, v)
	if err != nil {
		return nil, err
	}
	tree, err := exp.Export(path, v)
	if err != nil {
		return nil, err
	}
	return tree.collect(tags), nil
}

func joined(path []string) string {
	return strings.Join(path, ".")
}
