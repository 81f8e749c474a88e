// Package formats provides readers and writers for the binary file formats
// consumed by Second Life content tools, currently the LL keyframe motion
// (.anim) format.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	stdmath "math"
	"os"
	"sort"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

// ANIM format errors.
var (
	ErrInvalidAnimVersion = errors.New("unsupported ANIM version")
	ErrTruncatedAnimData  = errors.New("truncated ANIM data")
	ErrTooManyAnimJoints  = errors.New("too many ANIM joints")
	ErrInvalidKeyCount    = errors.New("invalid ANIM keyframe count")
)

const (
	// AnimVersion and AnimSubVersion are the only supported header versions.
	AnimVersion    uint16 = 1
	AnimSubVersion uint16 = 0

	// MaxAnimJoints caps the joint count accepted by the viewer.
	MaxAnimJoints = 216

	// MaxPelvisOffset bounds position keys on every axis, in meters.
	MaxPelvisOffset float32 = 5.0

	maxKeysPerJoint   = 65535
	maxConstraints    = 10
	constraintNameLen = 16
)

// HandPose values.
const (
	HandPoseSpread  uint32 = 0
	HandPoseRelaxed uint32 = 1
)

// RotKeyframe is a rotation keyframe. Time is in seconds.
type RotKeyframe struct {
	Time float32
	Rot  math.Quat
}

// PosKeyframe is a position keyframe. Time is in seconds, Pos in meters.
type PosKeyframe struct {
	Time float32
	Pos  math.Vec3
}

// AnimJoint holds the keyframes for one joint.
type AnimJoint struct {
	Name     string
	Priority int32
	RotKeys  []RotKeyframe
	PosKeys  []PosKeyframe
}

// AnimConstraint is a joint chain constraint. Morph animations never use
// them, but they are kept so files round-trip.
type AnimConstraint struct {
	ChainLength  uint8
	Type         uint8
	SourceVolume string
	SourceOffset [3]float32
	TargetVolume string
	TargetOffset [3]float32
	TargetDir    [3]float32
	EaseInStart  float32
	EaseInStop   float32
	EaseOutStart float32
	EaseOutStop  float32
}

// Animation is a parsed or constructed LL keyframe animation.
type Animation struct {
	Version      uint16
	SubVersion   uint16
	BasePriority int32
	Duration     float32 // seconds
	EmoteName    string
	LoopIn       float32
	LoopOut      float32
	Loop         bool
	EaseIn       float32
	EaseOut      float32
	HandPose     uint32
	Joints       []AnimJoint
	Constraints  []AnimConstraint
}

// NewAnimation returns an empty animation with the current header version.
func NewAnimation() *Animation {
	return &Animation{
		Version:    AnimVersion,
		SubVersion: AnimSubVersion,
		HandPose:   HandPoseRelaxed,
	}
}

// Joint returns the joint with the given name, or nil if not found.
func (a *Animation) Joint(name string) *AnimJoint {
	for i := range a.Joints {
		if a.Joints[i].Name == name {
			return &a.Joints[i]
		}
	}
	return nil
}

// JointNames returns the animated joint names, sorted.
func (a *Animation) JointNames() []string {
	names := make([]string, len(a.Joints))
	for i, j := range a.Joints {
		names[i] = j.Name
	}
	sort.Strings(names)
	return names
}

// KeyframeCount returns the total number of keyframes across all joints.
func (a *Animation) KeyframeCount() int {
	total := 0
	for _, j := range a.Joints {
		total += len(j.RotKeys) + len(j.PosKeys)
	}
	return total
}

// MarshalBinary encodes the animation in the LL keyframe motion format.
func (a *Animation) MarshalBinary() ([]byte, error) {
	if len(a.Joints) > MaxAnimJoints {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAnimJoints, len(a.Joints))
	}

	buf := new(bytes.Buffer)
	w := func(v any) { binary.Write(buf, binary.LittleEndian, v) }

	w(a.Version)
	w(a.SubVersion)
	w(a.BasePriority)
	w(a.Duration)
	writeCString(buf, a.EmoteName)
	w(a.LoopIn)
	w(a.LoopOut)
	w(boolToInt32(a.Loop))
	w(a.EaseIn)
	w(a.EaseOut)
	w(a.HandPose)
	w(uint32(len(a.Joints)))

	for _, j := range a.Joints {
		if len(j.RotKeys) > maxKeysPerJoint || len(j.PosKeys) > maxKeysPerJoint {
			return nil, fmt.Errorf("%w: joint %s", ErrInvalidKeyCount, j.Name)
		}
		writeCString(buf, j.Name)
		w(j.Priority)

		w(int32(len(j.RotKeys)))
		for _, k := range j.RotKeys {
			q := k.Rot.Canonical()
			w(timeToU16(k.Time, a.Duration))
			w(F32ToU16(q.X, -1, 1))
			w(F32ToU16(q.Y, -1, 1))
			w(F32ToU16(q.Z, -1, 1))
		}

		w(int32(len(j.PosKeys)))
		for _, k := range j.PosKeys {
			w(timeToU16(k.Time, a.Duration))
			w(F32ToU16(k.Pos.X, -MaxPelvisOffset, MaxPelvisOffset))
			w(F32ToU16(k.Pos.Y, -MaxPelvisOffset, MaxPelvisOffset))
			w(F32ToU16(k.Pos.Z, -MaxPelvisOffset, MaxPelvisOffset))
		}
	}

	w(int32(len(a.Constraints)))
	for _, c := range a.Constraints {
		w(c.ChainLength)
		w(c.Type)
		writeFixedString(buf, c.SourceVolume, constraintNameLen)
		w(c.SourceOffset)
		writeFixedString(buf, c.TargetVolume, constraintNameLen)
		w(c.TargetOffset)
		w(c.TargetDir)
		w(c.EaseInStart)
		w(c.EaseInStop)
		w(c.EaseOutStart)
		w(c.EaseOutStop)
	}

	return buf.Bytes(), nil
}

// WriteFile encodes the animation to path.
func (a *Animation) WriteFile(path string) error {
	data, err := a.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// animReader reads little-endian values and remembers the first error.
type animReader struct {
	r   *bytes.Reader
	err error
}

func (ar *animReader) read(v any) {
	if ar.err != nil {
		return
	}
	if err := binary.Read(ar.r, binary.LittleEndian, v); err != nil {
		ar.err = ErrTruncatedAnimData
	}
}

func (ar *animReader) cstring() string {
	if ar.err != nil {
		return ""
	}
	var out []byte
	for {
		b, err := ar.r.ReadByte()
		if err != nil {
			ar.err = ErrTruncatedAnimData
			return ""
		}
		if b == 0 {
			return string(out)
		}
		out = append(out, b)
	}
}

func (ar *animReader) fixedString(length int) string {
	if ar.err != nil {
		return ""
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(ar.r, buf); err != nil {
		ar.err = ErrTruncatedAnimData
		return ""
	}
	return trimNull(buf)
}

// ParseAnimation parses LL keyframe motion data from a byte slice.
func ParseAnimation(data []byte) (*Animation, error) {
	ar := &animReader{r: bytes.NewReader(data)}
	a := &Animation{}

	ar.read(&a.Version)
	ar.read(&a.SubVersion)
	if ar.err != nil {
		return nil, ar.err
	}
	if a.Version != AnimVersion || a.SubVersion != AnimSubVersion {
		return nil, fmt.Errorf("%w: %d.%d", ErrInvalidAnimVersion, a.Version, a.SubVersion)
	}

	var loop int32
	var jointCount uint32
	ar.read(&a.BasePriority)
	ar.read(&a.Duration)
	a.EmoteName = ar.cstring()
	ar.read(&a.LoopIn)
	ar.read(&a.LoopOut)
	ar.read(&loop)
	ar.read(&a.EaseIn)
	ar.read(&a.EaseOut)
	ar.read(&a.HandPose)
	ar.read(&jointCount)
	if ar.err != nil {
		return nil, ar.err
	}
	a.Loop = loop != 0

	if jointCount > MaxAnimJoints {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAnimJoints, jointCount)
	}

	a.Joints = make([]AnimJoint, jointCount)
	for i := range a.Joints {
		if err := parseAnimJoint(ar, &a.Joints[i], a.Duration); err != nil {
			return nil, fmt.Errorf("parsing joint %d: %w", i, err)
		}
	}

	// Older exporters stop after the joints.
	if ar.r.Len() == 0 {
		return a, nil
	}

	var constraintCount int32
	ar.read(&constraintCount)
	if ar.err != nil {
		return nil, ar.err
	}
	if constraintCount < 0 || constraintCount > maxConstraints {
		return nil, fmt.Errorf("%w: %d constraints", ErrTruncatedAnimData, constraintCount)
	}
	for i := int32(0); i < constraintCount; i++ {
		var c AnimConstraint
		ar.read(&c.ChainLength)
		ar.read(&c.Type)
		c.SourceVolume = ar.fixedString(constraintNameLen)
		ar.read(&c.SourceOffset)
		c.TargetVolume = ar.fixedString(constraintNameLen)
		ar.read(&c.TargetOffset)
		ar.read(&c.TargetDir)
		ar.read(&c.EaseInStart)
		ar.read(&c.EaseInStop)
		ar.read(&c.EaseOutStart)
		ar.read(&c.EaseOutStop)
		if ar.err != nil {
			return nil, fmt.Errorf("parsing constraint %d: %w", i, ar.err)
		}
		a.Constraints = append(a.Constraints, c)
	}

	return a, nil
}

// parseAnimJoint parses a single joint block.
func parseAnimJoint(ar *animReader, j *AnimJoint, duration float32) error {
	j.Name = ar.cstring()
	ar.read(&j.Priority)

	var rotCount int32
	ar.read(&rotCount)
	if ar.err != nil {
		return ar.err
	}
	if rotCount < 0 || rotCount > maxKeysPerJoint {
		return fmt.Errorf("%w: %d rotation keys", ErrInvalidKeyCount, rotCount)
	}
	j.RotKeys = make([]RotKeyframe, rotCount)
	for i := range j.RotKeys {
		var t, x, y, z uint16
		ar.read(&t)
		ar.read(&x)
		ar.read(&y)
		ar.read(&z)
		j.RotKeys[i] = RotKeyframe{
			Time: u16ToTime(t, duration),
			Rot:  math.QuatFromXYZ(U16ToF32(x, -1, 1), U16ToF32(y, -1, 1), U16ToF32(z, -1, 1)),
		}
	}

	var posCount int32
	ar.read(&posCount)
	if ar.err != nil {
		return ar.err
	}
	if posCount < 0 || posCount > maxKeysPerJoint {
		return fmt.Errorf("%w: %d position keys", ErrInvalidKeyCount, posCount)
	}
	j.PosKeys = make([]PosKeyframe, posCount)
	for i := range j.PosKeys {
		var t, x, y, z uint16
		ar.read(&t)
		ar.read(&x)
		ar.read(&y)
		ar.read(&z)
		j.PosKeys[i] = PosKeyframe{
			Time: u16ToTime(t, duration),
			Pos: math.Vec3{
				X: U16ToF32(x, -MaxPelvisOffset, MaxPelvisOffset),
				Y: U16ToF32(y, -MaxPelvisOffset, MaxPelvisOffset),
				Z: U16ToF32(z, -MaxPelvisOffset, MaxPelvisOffset),
			},
		}
	}

	return ar.err
}

// ParseAnimationFile parses an ANIM file from disk.
func ParseAnimationFile(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ANIM file: %w", err)
	}
	return ParseAnimation(data)
}

// F32ToU16 quantizes val from [lower, upper] to the full uint16 range.
// Out-of-range values are clamped.
func F32ToU16(val, lower, upper float32) uint16 {
	if val < lower {
		val = lower
	} else if val > upper {
		val = upper
	}
	val = (val - lower) / (upper - lower)
	return uint16(stdmath.Floor(float64(val) * 65535))
}

// U16ToF32 expands a quantized value back to [lower, upper]. Values within one
// quantization step of zero snap to zero.
func U16ToF32(ival uint16, lower, upper float32) float32 {
	val := float32(ival) / 65535
	val = val*(upper-lower) + lower
	delta := (upper - lower) / 65535
	if val < delta && val > -delta {
		val = 0
	}
	return val
}

func timeToU16(t, duration float32) uint16 {
	if duration <= 0 {
		return 0
	}
	return F32ToU16(t, 0, duration)
}

func u16ToTime(v uint16, duration float32) float32 {
	if duration <= 0 {
		return 0
	}
	return U16ToF32(v, 0, duration)
}

func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

func writeFixedString(buf *bytes.Buffer, s string, length int) {
	b := make([]byte, length)
	copy(b, s)
	buf.Write(b)
}

func trimNull(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
