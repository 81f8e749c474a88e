// Package meshio is the boundary between glTF files and the weighting code:
// it pulls vertex arrays out of a document before a solve and writes the
// resulting vertex groups back as skin weights afterwards.
package meshio

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

// Mesh adapter errors.
var (
	ErrNoMesh      = errors.New("mesh not found")
	ErrNoPositions = errors.New("primitive has no POSITION attribute")
	ErrNoTarget    = errors.New("morph target not found")
	ErrNoTexCoords = errors.New("primitive has no TEXCOORD_0 attribute")
	ErrGroupSize   = errors.New("vertex group size does not match mesh")
)

// Document is an opened glTF document and the mesh being worked on.
type Document struct {
	Path string
	Doc  *gltf.Document
	Mesh uint32
	// Up is the vertical axis of the file; positions and morph offsets are
	// returned in the rig frame.
	Up UpAxis
}

// Open loads a glTF or GLB file and selects a mesh by index. The document
// assumes the glTF Y-up convention until Up is changed.
func Open(path string, mesh int) (*Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if mesh < 0 || mesh >= len(doc.Meshes) {
		return nil, fmt.Errorf("%w: %s has %d meshes, wanted index %d", ErrNoMesh, path, len(doc.Meshes), mesh)
	}
	return &Document{Path: path, Doc: doc, Mesh: uint32(mesh)}, nil
}

func (d *Document) primitives() []*gltf.Primitive {
	return d.Doc.Meshes[d.Mesh].Primitives
}

// VertexCounts returns the vertex count of each primitive of the mesh.
func (d *Document) VertexCounts() ([]int, error) {
	prims := d.primitives()
	counts := make([]int, len(prims))
	for i, p := range prims {
		idx, ok := p.Attributes[gltf.POSITION]
		if !ok {
			return nil, fmt.Errorf("%w: %s primitive %d", ErrNoPositions, d.Path, i)
		}
		counts[i] = int(d.Doc.Accessors[idx].Count)
	}
	return counts, nil
}

// Positions returns the vertex positions of all primitives in the rig frame,
// concatenated in primitive order.
func (d *Document) Positions() ([]math.Vec3, error) {
	var out []math.Vec3
	for i, p := range d.primitives() {
		idx, ok := p.Attributes[gltf.POSITION]
		if !ok {
			return nil, fmt.Errorf("%w: %s primitive %d", ErrNoPositions, d.Path, i)
		}
		pos, err := modeler.ReadPosition(d.Doc, d.Doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("reading positions of %s primitive %d: %w", d.Path, i, err)
		}
		for _, p := range pos {
			out = append(out, d.Up.ToRig(p))
		}
	}
	return out, nil
}

// MorphTarget returns the base positions and the positions with morph target
// target fully applied.
func (d *Document) MorphTarget(target int) (base, morphed []math.Vec3, err error) {
	base, err = d.Positions()
	if err != nil {
		return nil, nil, err
	}
	morphed = make([]math.Vec3, 0, len(base))
	for i, p := range d.primitives() {
		if target < 0 || target >= len(p.Targets) {
			return nil, nil, fmt.Errorf("%w: %s primitive %d has %d targets, wanted index %d", ErrNoTarget, d.Path, i, len(p.Targets), target)
		}
		idx, ok := p.Targets[target][gltf.POSITION]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s primitive %d target %d has no POSITION", ErrNoTarget, d.Path, i, target)
		}
		deltas, err := modeler.ReadPosition(d.Doc, d.Doc.Accessors[idx], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("reading target %d of %s primitive %d: %w", target, d.Path, i, err)
		}
		offset := len(morphed)
		if offset+len(deltas) > len(base) {
			return nil, nil, fmt.Errorf("%w: %s target %d has more deltas than vertices", ErrNoTarget, d.Path, target)
		}
		for k, delta := range deltas {
			morphed = append(morphed, base[offset+k].Add(d.Up.ToRig(delta)))
		}
	}
	return base, morphed, nil
}

// TexCoords returns TEXCOORD_0 of all primitives, concatenated in primitive
// order.
func (d *Document) TexCoords() ([][2]float32, error) {
	var out [][2]float32
	for i, p := range d.primitives() {
		idx, ok := p.Attributes[gltf.TEXCOORD_0]
		if !ok {
			return nil, fmt.Errorf("%w: %s primitive %d", ErrNoTexCoords, d.Path, i)
		}
		uvs, err := modeler.ReadTextureCoord(d.Doc, d.Doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("reading texcoords of %s primitive %d: %w", d.Path, i, err)
		}
		out = append(out, uvs...)
	}
	return out, nil
}

// LoadPositions opens path and returns the positions of the given mesh in the
// rig frame.
func LoadPositions(path string, mesh int, up UpAxis) ([]math.Vec3, error) {
	d, err := Open(path, mesh)
	if err != nil {
		return nil, err
	}
	d.Up = up
	return d.Positions()
}

// LoadMorphTarget opens path and returns base and morphed positions of the
// given mesh and morph target in the rig frame.
func LoadMorphTarget(path string, mesh, target int, up UpAxis) (base, morphed []math.Vec3, err error) {
	d, err := Open(path, mesh)
	if err != nil {
		return nil, nil, err
	}
	d.Up = up
	return d.MorphTarget(target)
}

// LoadTexCoords opens path and returns TEXCOORD_0 of the given mesh.
func LoadTexCoords(path string, mesh int) ([][2]float32, error) {
	d, err := Open(path, mesh)
	if err != nil {
		return nil, err
	}
	return d.TexCoords()
}
