package meshio

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// MaxInfluences is the number of joints a vertex may be bound to through a
// single JOINTS_0/WEIGHTS_0 pair.
const MaxInfluences = 4

// ArmatureName names the node that parents the generated joint nodes.
const ArmatureName = "Armature"

// Group is a named vertex group: one weight per mesh vertex, in the same
// order as Positions.
type Group struct {
	Name    string
	Weights []float32
	// Bound optionally marks vertices that belong to the group even at zero
	// weight. glTF cannot store such bindings, but the weight table keeps them.
	Bound []bool
}

type influence struct {
	joint  uint16
	weight float32
}

// topInfluences picks the heaviest non-zero influences of vertex v, heaviest
// first. Ties keep group order.
func topInfluences(groups []Group, v int) []influence {
	var infl []influence
	for g, grp := range groups {
		if w := grp.Weights[v]; w != 0 {
			infl = append(infl, influence{joint: uint16(g), weight: w})
		}
	}
	sort.SliceStable(infl, func(i, j int) bool { return infl[i].weight > infl[j].weight })
	if len(infl) > MaxInfluences {
		infl = infl[:MaxInfluences]
	}
	return infl
}

// ApplySkin adds one joint node per group and binds every primitive of the
// mesh to them with JOINTS_0/WEIGHTS_0. Vertices with more than MaxInfluences
// non-zero weights keep the heaviest ones.
func (d *Document) ApplySkin(groups []Group) error {
	counts, err := d.VertexCounts()
	if err != nil {
		return err
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	for _, g := range groups {
		if len(g.Weights) != total {
			return fmt.Errorf("%w: group %q has %d weights, mesh has %d vertices", ErrGroupSize, g.Name, len(g.Weights), total)
		}
	}

	doc := d.Doc

	// Joint nodes under a fresh armature root.
	jointNodes := make([]uint32, len(groups))
	for i, g := range groups {
		jointNodes[i] = uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: g.Name})
	}
	armature := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: ArmatureName, Children: jointNodes})

	skin := uint32(len(doc.Skins))
	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:     ArmatureName,
		Skeleton: gltf.Index(armature),
		Joints:   jointNodes,
	})

	offset := 0
	for pi, prim := range d.primitives() {
		joints := make([][4]uint16, counts[pi])
		weights := make([][4]float32, counts[pi])
		for v := 0; v < counts[pi]; v++ {
			for k, in := range topInfluences(groups, offset+v) {
				joints[v][k] = in.joint
				weights[v][k] = in.weight
			}
		}
		prim.Attributes[gltf.JOINTS_0] = modeler.WriteJoints(doc, joints)
		prim.Attributes[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, weights)
		offset += counts[pi]
	}

	d.bindMeshNodes(skin, armature)
	return nil
}

// bindMeshNodes attaches the skin to every node instancing the mesh, creating
// one when none does. The armature joins the same scene.
func (d *Document) bindMeshNodes(skin, armature uint32) {
	doc := d.Doc
	bound := false
	for _, n := range doc.Nodes {
		if n.Mesh != nil && *n.Mesh == d.Mesh {
			n.Skin = gltf.Index(skin)
			bound = true
		}
	}

	roots := []uint32{armature}
	if !bound {
		roots = append(roots, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: doc.Meshes[d.Mesh].Name,
			Mesh: gltf.Index(d.Mesh),
			Skin: gltf.Index(skin),
		})
	}

	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{})
		doc.Scene = gltf.Index(0)
	}
	scene := uint32(0)
	if doc.Scene != nil {
		scene = *doc.Scene
	}
	doc.Scenes[scene].Nodes = append(doc.Scenes[scene].Nodes, roots...)
}

// Save writes the document to path. A .glb extension selects the binary
// container; otherwise buffers are embedded as data URIs so the output is a
// single self-contained file.
func (d *Document) Save(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		if err := gltf.SaveBinary(d.Doc, path); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		return nil
	}
	for _, b := range d.Doc.Buffers {
		if !b.IsEmbeddedResource() {
			b.EmbeddedResource()
		}
	}
	if err := gltf.Save(d.Doc, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// WriteSkinned copies the mesh at srcPath to dstPath with the groups bound as
// skin weights.
func WriteSkinned(srcPath, dstPath string, mesh int, groups []Group) error {
	d, err := Open(srcPath, mesh)
	if err != nil {
		return err
	}
	if err := d.ApplySkin(groups); err != nil {
		return err
	}
	return d.Save(dstPath)
}
