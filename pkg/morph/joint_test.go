package morph

import (
	"errors"
	"testing"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

func TestJoint_Mapping(t *testing.T) {
	tests := []struct {
		joint Joint
		name  string
		str   string
		axis  math.Axis
		sign  int
		dir   math.Vec3
	}{
		{PosX, "mHipLeft", "+X", math.AxisX, 1, math.Vec3{X: 1}},
		{NegX, "mHipRight", "-X", math.AxisX, -1, math.Vec3{X: -1}},
		{PosY, "mHindLimb1Left", "+Y", math.AxisY, 1, math.Vec3{Y: 1}},
		{NegY, "mHindLimb1Right", "-Y", math.AxisY, -1, math.Vec3{Y: -1}},
		{PosZ, "mTail1", "+Z", math.AxisZ, 1, math.Vec3{Z: 1}},
		{NegZ, "mGroin", "-Z", math.AxisZ, -1, math.Vec3{Z: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.joint.Name(); got != tt.name {
				t.Errorf("Name() = %q, want %q", got, tt.name)
			}
			if got := tt.joint.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			if got := tt.joint.Axis(); got != tt.axis {
				t.Errorf("Axis() = %v, want %v", got, tt.axis)
			}
			if got := tt.joint.Sign(); got != tt.sign {
				t.Errorf("Sign() = %d, want %d", got, tt.sign)
			}
			if got := tt.joint.Direction(); got != tt.dir {
				t.Errorf("Direction() = %v, want %v", got, tt.dir)
			}
			if got := JointFor(tt.axis, tt.sign); got != tt.joint {
				t.Errorf("JointFor(%v, %d) = %v, want %v", tt.axis, tt.sign, got, tt.joint)
			}
			parsed, err := ParseJoint(tt.name)
			if err != nil || parsed != tt.joint {
				t.Errorf("ParseJoint(%q) = %v, %v", tt.name, parsed, err)
			}
		})
	}
}

func TestParseJoint_Unknown(t *testing.T) {
	if _, err := ParseJoint(NullJointName); !errors.Is(err, ErrUnknownJoint) {
		t.Errorf("expected ErrUnknownJoint for null joint, got %v", err)
	}
}

func TestJoint_Invalid(t *testing.T) {
	j := Joint(12)
	if j.Valid() {
		t.Error("Joint(12) should be invalid")
	}
	if j.Name() != "Joint(12)" {
		t.Errorf("Name() = %q", j.Name())
	}
	if (Record{}).Weight(j) != 0 {
		t.Error("Weight of invalid joint should be 0")
	}
}
