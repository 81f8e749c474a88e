// Package morph computes per-vertex control-joint weights that let a skeletal
// animation reproduce a sculpted morph target.
//
// Each control joint travels along exactly one signed axis. A vertex displaced
// by D between the base and the morphed mesh is bound to the joint matching
// the sign of each non-zero component of D, with a weight proportional to the
// component's magnitude over the rig's reference travel distance.
package morph

import (
	"fmt"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

// Joint is one of the six fixed control joints of the morph-target armature.
type Joint int

const (
	PosX Joint = iota // +X
	NegX              // -X
	PosY              // +Y
	NegY              // -Y
	PosZ              // +Z
	NegZ              // -Z
)

// NumJoints is the number of control joints.
const NumJoints = 6

// NullJointName is the rig bone that never moves. Unused influence is handed
// to it when a format requires weights to sum to 1.
const NullJointName = "mPelvis"

var jointNames = [NumJoints]string{
	PosX: "mHipLeft",
	NegX: "mHipRight",
	PosY: "mHindLimb1Left",
	NegY: "mHindLimb1Right",
	PosZ: "mTail1",
	NegZ: "mGroin",
}

// AllJoints returns the control joints in rig order.
func AllJoints() [NumJoints]Joint {
	return [NumJoints]Joint{PosX, NegX, PosY, NegY, PosZ, NegZ}
}

// JointFor returns the joint driving the given axis in the direction of sign.
// sign must be non-zero.
func JointFor(axis math.Axis, sign int) Joint {
	j := Joint(int(axis) * 2)
	if sign < 0 {
		j++
	}
	return j
}

// ParseJoint resolves a rig bone name to its control joint.
func ParseJoint(name string) (Joint, error) {
	for j, n := range jointNames {
		if n == name {
			return Joint(j), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, name)
}

// Valid reports whether j is one of the six control joints.
func (j Joint) Valid() bool {
	return j >= PosX && j <= NegZ
}

// Name returns the rig bone name.
func (j Joint) Name() string {
	if !j.Valid() {
		return fmt.Sprintf("Joint(%d)", int(j))
	}
	return jointNames[j]
}

// String returns the signed axis, e.g. "+X".
func (j Joint) String() string {
	if !j.Valid() {
		return fmt.Sprintf("Joint(%d)", int(j))
	}
	if j.Sign() > 0 {
		return "+" + j.Axis().String()
	}
	return "-" + j.Axis().String()
}

// Axis returns the axis the joint travels along.
func (j Joint) Axis() math.Axis {
	return math.Axis(int(j) / 2)
}

// Sign returns +1 or -1.
func (j Joint) Sign() int {
	if int(j)%2 == 0 {
		return 1
	}
	return -1
}

// Direction returns the unit vector of the joint's travel.
func (j Joint) Direction() math.Vec3 {
	s := float32(j.Sign())
	switch j.Axis() {
	case math.AxisX:
		return math.Vec3{X: s}
	case math.AxisY:
		return math.Vec3{Y: s}
	default:
		return math.Vec3{Z: s}
	}
}
