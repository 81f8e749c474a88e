package morph

// Record is the weight assignment of a single vertex.
type Record struct {
	Control [NumJoints]float32 // indexed by Joint
	Null    float32            // weight on NullJointName, meaningful when HasNull
	HasNull bool
}

// Weight returns the control weight for j.
func (r Record) Weight(j Joint) float32 {
	if !j.Valid() {
		return 0
	}
	return r.Control[j]
}

// Sum returns the summed control weight. It may exceed 1: axes are weighted
// independently.
func (r Record) Sum() float32 {
	var s float32
	for _, w := range r.Control {
		s += w
	}
	return s
}

// IsZero reports whether no control joint carries weight.
func (r Record) IsZero() bool {
	for _, w := range r.Control {
		if w != 0 {
			return false
		}
	}
	return true
}

// Map returns bone name to weight for the non-zero control joints, plus the
// null joint when it is bound.
func (r Record) Map() map[string]float32 {
	m := make(map[string]float32, NumJoints+1)
	for j, w := range r.Control {
		if w != 0 {
			m[Joint(j).Name()] = w
		}
	}
	if r.HasNull {
		m[NullJointName] = r.Null
	}
	return m
}

// GroupNames returns the vertex group names a solve with policy p produces,
// in rig order.
func GroupNames(p NullPolicy) []string {
	names := make([]string, 0, NumJoints+1)
	for _, j := range AllJoints() {
		names = append(names, j.Name())
	}
	if p != NullNone {
		names = append(names, NullJointName)
	}
	return names
}

// Columns transposes records into one weight slice per group, in the order of
// GroupNames(p).
func Columns(records []Record, p NullPolicy) [][]float32 {
	n := NumJoints
	if p != NullNone {
		n++
	}
	cols := make([][]float32, n)
	for c := range cols {
		cols[c] = make([]float32, len(records))
	}
	for i, rec := range records {
		for j := 0; j < NumJoints; j++ {
			cols[j][i] = rec.Control[j]
		}
		if p != NullNone && rec.HasNull {
			cols[NumJoints][i] = rec.Null
		}
	}
	return cols
}

// Bound reports, per group in the order of GroupNames(p), which vertices are
// bound to it. A binding can carry zero weight: NullZero binds unmoved
// vertices to the null joint at 0.
func Bound(records []Record, p NullPolicy) [][]bool {
	names := GroupNames(p)
	bound := make([][]bool, len(names))
	for c := range bound {
		bound[c] = make([]bool, len(records))
	}
	for i, rec := range records {
		m := rec.Map()
		for c, name := range names {
			_, bound[c][i] = m[name]
		}
	}
	return bound
}
