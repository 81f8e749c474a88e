package meshio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VertexWeights is the YAML form of one vertex's bindings.
type VertexWeights struct {
	Index   int                `yaml:"index"`
	Weights map[string]float32 `yaml:"weights,flow"`
}

// WeightTable converts groups into per-vertex records, omitting zero weights
// unless the group marks the vertex as bound. Vertices without any binding
// keep an empty map.
func WeightTable(groups []Group) []VertexWeights {
	n := 0
	if len(groups) > 0 {
		n = len(groups[0].Weights)
	}
	out := make([]VertexWeights, n)
	for v := range out {
		out[v] = VertexWeights{Index: v, Weights: map[string]float32{}}
		for _, g := range groups {
			if v >= len(g.Weights) {
				continue
			}
			if g.Weights[v] != 0 || (v < len(g.Bound) && g.Bound[v]) {
				out[v].Weights[g.Name] = g.Weights[v]
			}
		}
	}
	return out
}

// DumpWeights writes a per-vertex weight table to path as YAML.
func DumpWeights(path string, table []VertexWeights) error {
	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("encoding weights: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
