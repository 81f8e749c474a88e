// Package morphanim builds the looping skeletal animation that drives the
// morph-target control joints from the base shape to the fully morphed shape
// and back.
package morphanim

import (
	"errors"
	"fmt"

	"github.com/SaladDais/sl-creation-utils/pkg/formats"
	"github.com/SaladDais/sl-creation-utils/pkg/math"
	"github.com/SaladDais/sl-creation-utils/pkg/morph"
)

// HindLimbsRootName is pinned at the origin because the Y-axis control joints
// hang off it.
const HindLimbsRootName = "mHindLimbsRoot"

// Builder errors.
var (
	ErrTravelOutOfRange = errors.New("joint travel outside animation position range")
	ErrInvalidDuration  = errors.New("animation duration must be positive")
)

// Options configures the generated animation.
type Options struct {
	Priority int32
	Duration float32 // seconds for one full morph-and-back cycle
	// Travel is how far each control joint moves at full morph. It must match
	// the reference distance the weights were solved with.
	Travel      float32
	InterFrames int // intermediate keys per leg
	// AxisSlop delays each successive axis by this many keyframes, so the
	// morph does not progress along all axes in lockstep.
	AxisSlop int
	EaseIn   float32
	EaseOut  float32
	HandPose uint32
}

// DefaultOptions matches the companion rig.
func DefaultOptions() Options {
	return Options{
		Priority:    5,
		Duration:    5,
		Travel:      morph.DefaultReferenceDistance,
		InterFrames: 10,
		EaseIn:      0.8,
		EaseOut:     0.8,
		HandPose:    formats.HandPoseRelaxed,
	}
}

// Build creates the morph animation.
func Build(opts Options) (*formats.Animation, error) {
	if !(opts.Duration > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, opts.Duration)
	}
	if !(opts.Travel > 0) || opts.Travel > formats.MaxPelvisOffset {
		return nil, fmt.Errorf("%w: %v (max %v)", ErrTravelOutOfRange, opts.Travel, formats.MaxPelvisOffset)
	}
	if opts.InterFrames < 0 {
		opts.InterFrames = 0
	}

	anim := formats.NewAnimation()
	anim.BasePriority = opts.Priority
	anim.Duration = opts.Duration
	anim.LoopIn = 0
	anim.LoopOut = opts.Duration
	anim.Loop = true
	anim.EaseIn = opts.EaseIn
	anim.EaseOut = opts.EaseOut
	anim.HandPose = opts.HandPose

	noRot := []formats.RotKeyframe{{Time: 0, Rot: math.QuatIdentity()}}
	pinned := func(name string) formats.AnimJoint {
		return formats.AnimJoint{
			Name:     name,
			Priority: opts.Priority,
			PosKeys:  []formats.PosKeyframe{{Time: 0, Pos: math.Vec3{}}},
			RotKeys:  noRot,
		}
	}

	// Everything hangs off the pelvis, keep it still.
	anim.Joints = append(anim.Joints, pinned(morph.NullJointName), pinned(HindLimbsRootName))

	half := opts.Duration / 2
	for _, j := range morph.AllJoints() {
		end := j.Direction().Scale(opts.Travel)
		keys := SmoothPos(math.Vec3{}, end, opts.InterFrames, 0, half)
		keys = append(keys, SmoothPos(end, math.Vec3{}, opts.InterFrames, half, half)...)
		// Both signs of an axis stay in sync.
		keys = ShiftKeyframes(keys, int(j.Axis())*opts.AxisSlop)

		anim.Joints = append(anim.Joints, formats.AnimJoint{
			Name:     j.Name(),
			Priority: opts.Priority,
			PosKeys:  keys,
			RotKeys:  noRot,
		})
	}

	return anim, nil
}

// SmoothStep eases t in [0, 1] with zero slope at both ends.
func SmoothStep(t float32) float32 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// SmoothPos returns the keys moving from start to end over
// [time, time+duration], eased with SmoothStep: both endpoints plus
// interFrames evenly spaced keys between them.
func SmoothPos(start, end math.Vec3, interFrames int, time, duration float32) []formats.PosKeyframe {
	if interFrames < 0 {
		interFrames = 0
	}
	steps := interFrames + 1
	keys := make([]formats.PosKeyframe, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float32(i) / float32(steps)
		keys = append(keys, formats.PosKeyframe{
			Time: time + t*duration,
			Pos:  start.Lerp(end, SmoothStep(t)),
		})
	}
	return keys
}

// ShiftKeyframes delays the motion by n keyframes, assuming the animation
// loops: key times stay where they are and the positions rotate forward, so
// slot i takes the position of slot i-n. Negative n advances the motion.
func ShiftKeyframes(keys []formats.PosKeyframe, n int) []formats.PosKeyframe {
	count := len(keys)
	if count == 0 || n%count == 0 {
		return keys
	}
	out := make([]formats.PosKeyframe, count)
	for i := range keys {
		src := ((i-n)%count + count) % count
		out[i] = formats.PosKeyframe{Time: keys[i].Time, Pos: keys[src].Pos}
	}
	return out
}
