package meshio

import (
	"errors"
	"fmt"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

// ErrUnknownUpAxis is returned by ParseUpAxis for anything but "y" or "z".
var ErrUnknownUpAxis = errors.New("unknown up axis")

// UpAxis names the vertical axis of the coordinates stored in a mesh file.
// The rig works in the SL frame: X forward, Y left, Z up.
type UpAxis int

const (
	// UpY is the glTF convention: Y up, Z forward.
	UpY UpAxis = iota
	// UpZ stores coordinates already in the rig frame, as Blender and SL do.
	UpZ
)

func (u UpAxis) String() string {
	switch u {
	case UpY:
		return "y"
	case UpZ:
		return "z"
	}
	return fmt.Sprintf("UpAxis(%d)", int(u))
}

// ParseUpAxis parses "y" or "z".
func ParseUpAxis(s string) (UpAxis, error) {
	switch s {
	case "y", "Y":
		return UpY, nil
	case "z", "Z":
		return UpZ, nil
	}
	return UpY, fmt.Errorf("%w: %q", ErrUnknownUpAxis, s)
}

// ToRig converts a file-space position or offset to the rig frame. For Y-up
// files (x, y, z) becomes (x, -z, y), the inverse of the Z-up to Y-up
// conversion glTF exporters apply.
func (u UpAxis) ToRig(p [3]float32) math.Vec3 {
	if u == UpY {
		return math.Vec3{X: p[0], Y: -p[2], Z: p[1]}
	}
	return math.V3(p)
}
