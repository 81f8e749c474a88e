package morph

import (
	"errors"
	stdmath "math"
	"testing"

	"github.com/SaladDais/sl-creation-utils/pkg/math"
)

func opts(r float32) Options {
	return Options{ReferenceDistance: r}
}

func TestSolve_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		base    []math.Vec3
		morphed []math.Vec3
		r       float32
		want    []map[string]float32
	}{
		{
			name:    "half travel on +X",
			base:    []math.Vec3{{X: 0, Y: 0, Z: 0}},
			morphed: []math.Vec3{{X: 2.5, Y: 0, Z: 0}},
			r:       5,
			want:    []map[string]float32{{"mHipLeft": 0.5}},
		},
		{
			name:    "saturated +X",
			base:    []math.Vec3{{X: 0, Y: 0, Z: 0}},
			morphed: []math.Vec3{{X: 10, Y: 0, Z: 0}},
			r:       5,
			want:    []map[string]float32{{"mHipLeft": 1.0}},
		},
		{
			name:    "no change",
			base:    []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}},
			morphed: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}},
			r:       5,
			want:    []map[string]float32{{}, {}},
		},
		{
			name:    "all three axes",
			base:    []math.Vec3{{X: 1, Y: 1, Z: 1}},
			morphed: []math.Vec3{{X: 2, Y: 0.5, Z: 1.25}},
			r:       2,
			want:    []map[string]float32{{"mHipLeft": 0.5, "mHindLimb1Right": 0.25, "mTail1": 0.125}},
		},
		{
			name:    "negative Z",
			base:    []math.Vec3{{X: 0, Y: 0, Z: 0}},
			morphed: []math.Vec3{{X: 0, Y: 0, Z: -1}},
			r:       4,
			want:    []map[string]float32{{"mGroin": 0.25}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Solve(tt.base, tt.morphed, opts(tt.r))
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, rec := range got {
				m := rec.Map()
				if len(m) != len(tt.want[i]) {
					t.Errorf("vertex %d: got %v, want %v", i, m, tt.want[i])
					continue
				}
				for name, w := range tt.want[i] {
					if m[name] != w {
						t.Errorf("vertex %d: %s = %v, want %v", i, name, m[name], w)
					}
				}
			}
		})
	}
}

func TestSolve_ShapeMismatch(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}
	morphed := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}

	got, err := Solve(base, morphed, DefaultOptions())
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no output on mismatch, got %v", got)
	}
}

func TestSolve_EmptyInput(t *testing.T) {
	got, err := Solve(nil, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}

func TestSolve_InvalidOptions(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}}
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"zero distance", Options{}, ErrInvalidDistance},
		{"negative distance", Options{ReferenceDistance: -1}, ErrInvalidDistance},
		{"bad policy", Options{ReferenceDistance: 5, NullPolicy: NullPolicy(42)}, ErrUnknownNullPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Solve(base, base, tt.opts); !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSolve_NonFinite(t *testing.T) {
	nan := float32(stdmath.NaN())
	inf := float32(stdmath.Inf(1))
	tests := []struct {
		name    string
		base    []math.Vec3
		morphed []math.Vec3
	}{
		{"NaN in morphed", []math.Vec3{{}, {}}, []math.Vec3{{X: 1, Y: 0, Z: 0}, {X: 0, Y: nan, Z: 0}}},
		{"infinite displacement", []math.Vec3{{}}, []math.Vec3{{X: 0, Y: 0, Z: inf}}},
		{"infinite in both", []math.Vec3{{X: inf, Y: 0, Z: 0}}, []math.Vec3{{X: inf, Y: 0, Z: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Solve(tt.base, tt.morphed, DefaultOptions())
			if !errors.Is(err, ErrNonFinite) {
				t.Errorf("expected ErrNonFinite, got %v", err)
			}
			if got != nil {
				t.Errorf("expected no records, got %v", got)
			}
		})
	}
}

func TestSolve_DoesNotMutateInputs(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 2, Z: 3}}
	morphed := []math.Vec3{{X: 1, Y: -1, Z: 0}, {X: 1, Y: 2, Z: 4}}
	baseCopy := append([]math.Vec3(nil), base...)
	morphedCopy := append([]math.Vec3(nil), morphed...)

	if _, err := Solve(base, morphed, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	for i := range base {
		if base[i] != baseCopy[i] || morphed[i] != morphedCopy[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestSolve_IdenticalMeshesAreZero(t *testing.T) {
	verts := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: -2, Z: 3}, {X: -0.5, Y: 0.25, Z: 7}}
	for _, p := range []NullPolicy{NullNone, NullZero, NullRemainder} {
		t.Run(p.String(), func(t *testing.T) {
			got, err := Solve(verts, verts, Options{ReferenceDistance: 5, NullPolicy: p})
			if err != nil {
				t.Fatal(err)
			}
			for i, rec := range got {
				if !rec.IsZero() {
					t.Errorf("vertex %d: expected all-zero control weights, got %v", i, rec.Control)
				}
			}
		})
	}
}

func TestSolve_AtMostOneJointPerAxis(t *testing.T) {
	base := make([]math.Vec3, 0, 27)
	morphed := make([]math.Vec3, 0, 27)
	vals := []float32{-3, 0, 2}
	for _, x := range vals {
		for _, y := range vals {
			for _, z := range vals {
				base = append(base, math.Vec3{})
				morphed = append(morphed, math.Vec3{X: x, Y: y, Z: z})
			}
		}
	}

	got, err := Solve(base, morphed, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range got {
		for _, axis := range math.Axes {
			pos := rec.Weight(JointFor(axis, 1))
			neg := rec.Weight(JointFor(axis, -1))
			if pos != 0 && neg != 0 {
				t.Errorf("vertex %d: both %v joints weighted (%v, %v)", i, axis, pos, neg)
			}
		}
	}
}

func TestSolve_MonotonicUntilSaturation(t *testing.T) {
	steps := []float32{0, 0.5, 1, 2, 4, 5, 6, 50}
	base := make([]math.Vec3, len(steps))
	morphed := make([]math.Vec3, len(steps))
	for i, s := range steps {
		morphed[i] = math.Vec3{Y: s}
	}

	got, err := Solve(base, morphed, opts(5))
	if err != nil {
		t.Fatal(err)
	}
	prev := float32(-1)
	for i, rec := range got {
		w := rec.Weight(PosY)
		if w < prev {
			t.Errorf("step %v: weight %v decreased from %v", steps[i], w, prev)
		}
		if w > 1 {
			t.Errorf("step %v: weight %v exceeds 1", steps[i], w)
		}
		prev = w
	}
	if got[len(got)-1].Weight(PosY) != 1 {
		t.Errorf("expected saturation at 1, got %v", got[len(got)-1].Weight(PosY))
	}
}

func TestSolve_SignSymmetry(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}}
	morphed := []math.Vec3{{X: 0, Y: 0, Z: 1.5}, {X: 0, Y: 0, Z: -1.5}}

	got, err := Solve(base, morphed, opts(5))
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Weight(PosZ) != got[1].Weight(NegZ) {
		t.Errorf("+Z weight %v != -Z weight %v", got[0].Weight(PosZ), got[1].Weight(NegZ))
	}
	if got[0].Weight(NegZ) != 0 || got[1].Weight(PosZ) != 0 {
		t.Error("negating displacement should move weight to the opposite joint")
	}
}

func TestSolve_NoCrossAxisNormalization(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}}
	morphed := []math.Vec3{{X: 5, Y: 5, Z: 5}}

	got, err := Solve(base, morphed, opts(5))
	if err != nil {
		t.Fatal(err)
	}
	if s := got[0].Sum(); s != 3 {
		t.Errorf("expected independent per-axis weights summing to 3, got %v", s)
	}
}

func TestSolve_NullPolicies(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}}
	morphed := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 5, Y: 5, Z: 0}}

	tests := []struct {
		policy   NullPolicy
		wantHas  []bool
		wantNull []float32
	}{
		{NullNone, []bool{false, false, false}, []float32{0, 0, 0}},
		{NullZero, []bool{true, false, false}, []float32{0, 0, 0}},
		{NullRemainder, []bool{true, true, true}, []float32{1, 0.6, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			got, err := Solve(base, morphed, Options{ReferenceDistance: 5, NullPolicy: tt.policy})
			if err != nil {
				t.Fatal(err)
			}
			for i, rec := range got {
				if rec.HasNull != tt.wantHas[i] {
					t.Errorf("vertex %d: HasNull = %v, want %v", i, rec.HasNull, tt.wantHas[i])
				}
				if diff := rec.Null - tt.wantNull[i]; diff > 1e-6 || diff < -1e-6 {
					t.Errorf("vertex %d: Null = %v, want %v", i, rec.Null, tt.wantNull[i])
				}
			}
			// Control weights do not depend on the policy.
			if got[1].Weight(PosX) != 0.2 || got[1].Weight(PosY) != 0.2 {
				t.Errorf("control weights changed under %v: %v", tt.policy, got[1].Control)
			}
		})
	}
}

func TestSolve_NullZeroMapHasBinding(t *testing.T) {
	got, err := Solve([]math.Vec3{{}}, []math.Vec3{{}}, Options{ReferenceDistance: 5, NullPolicy: NullZero})
	if err != nil {
		t.Fatal(err)
	}
	m := got[0].Map()
	w, ok := m[NullJointName]
	if !ok || w != 0 || len(m) != 1 {
		t.Errorf("expected only a zero-weight %s binding, got %v", NullJointName, m)
	}
}

func TestSolve_Strict(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}}
	morphed := []math.Vec3{{X: 1, Y: 1, Z: 1}, {X: 3, Y: 3, Z: 0}}

	_, err := Solve(base, morphed, Options{ReferenceDistance: 5, Strict: true})
	if !errors.Is(err, ErrDisplacementTooLarge) {
		t.Fatalf("expected ErrDisplacementTooLarge, got %v", err)
	}

	if _, err := Solve(base, morphed, Options{ReferenceDistance: 5}); err != nil {
		t.Errorf("non-strict solve should saturate, got %v", err)
	}
}

func TestSolveWithStats(t *testing.T) {
	base := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}}
	morphed := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: -9, Z: 0}}

	_, stats, err := SolveWithStats(base, morphed, opts(5))
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Vertices: 3, Moved: 2, Saturated: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestParseNullPolicy(t *testing.T) {
	for _, p := range []NullPolicy{NullNone, NullZero, NullRemainder} {
		got, err := ParseNullPolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParseNullPolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseNullPolicy("pelvis"); !errors.Is(err, ErrUnknownNullPolicy) {
		t.Errorf("expected ErrUnknownNullPolicy, got %v", err)
	}
}

func TestColumns(t *testing.T) {
	records := []Record{
		{Control: [NumJoints]float32{PosX: 0.5}, HasNull: true, Null: 0.5},
		{Control: [NumJoints]float32{NegZ: 1}, HasNull: true, Null: 0},
	}
	cols := Columns(records, NullRemainder)
	names := GroupNames(NullRemainder)
	if len(cols) != len(names) || len(names) != NumJoints+1 {
		t.Fatalf("got %d columns and %d names", len(cols), len(names))
	}
	if cols[PosX][0] != 0.5 || cols[NegZ][1] != 1 || cols[NumJoints][0] != 0.5 {
		t.Errorf("unexpected columns: %v", cols)
	}
	if names[NumJoints] != NullJointName {
		t.Errorf("last group = %q, want %q", names[NumJoints], NullJointName)
	}
	if len(Columns(records, NullNone)) != NumJoints {
		t.Error("NullNone should not produce a null column")
	}
}

func TestBound(t *testing.T) {
	base := []math.Vec3{{}, {}}
	morphed := []math.Vec3{{}, {X: 0, Y: -1, Z: 0}}
	o := DefaultOptions()
	o.NullPolicy = NullZero
	records, err := Solve(base, morphed, o)
	if err != nil {
		t.Fatal(err)
	}

	bound := Bound(records, NullZero)
	if len(bound) != NumJoints+1 {
		t.Fatalf("expected %d groups, got %d", NumJoints+1, len(bound))
	}
	// Unmoved vertex: bound to the null joint only, at zero weight.
	if !bound[NumJoints][0] || bound[NumJoints][1] {
		t.Errorf("null bindings = %v, want [true false]", bound[NumJoints])
	}
	if !bound[NegY][1] || bound[NegY][0] || bound[PosY][1] {
		t.Errorf("NegY bindings = %v, PosY = %v", bound[NegY], bound[PosY])
	}
	if len(Bound(records, NullNone)) != NumJoints {
		t.Error("NullNone should not report a null group")
	}
}
