package display

import "sort"

// Identity is a stable, hardware-derived monitor identity (conventionally
// the first 16 bytes of a monitor's EDID header after the 8-byte magic).
type Identity string

// AbstractOutput is one monitor's entry in an AbstractLayout: a Transform
// plus its relations to every other monitor in the layout.
type AbstractOutput struct {
	Transform  Transform
	Neighbours map[Identity]Direction
}

func newAbstractOutput(t Transform) AbstractOutput {
	return AbstractOutput{Transform: t, Neighbours: map[Identity]Direction{}}
}

// Rel returns the relation to neighbour, or DirNone if unrelated.
func (o AbstractOutput) Rel(neighbour Identity) Direction {
	return o.Neighbours[neighbour]
}

func (o AbstractOutput) copy() AbstractOutput {
	n := make(map[Identity]Direction, len(o.Neighbours))
	for k, v := range o.Neighbours {
		n[k] = v
	}
	return AbstractOutput{Transform: o.Transform, Neighbours: n}
}

// AbstractLayout is the hardware-independent arrangement of spec §3: a set
// of monitor identities, each with a Transform and a symmetric neighbour
// graph. DirNone relations are never stored.
type AbstractLayout struct {
	Outputs map[Identity]AbstractOutput
}

// NewAbstractLayout builds an empty layout over the given identities, all
// with identity transforms and no relations.
func NewAbstractLayout(ids []Identity) AbstractLayout {
	outputs := make(map[Identity]AbstractOutput, len(ids))
	for _, id := range ids {
		outputs[id] = newAbstractOutput(IdentityTransform())
	}
	return AbstractLayout{Outputs: outputs}
}

// Copy returns a deep copy of the layout.
func (a AbstractLayout) Copy() AbstractLayout {
	out := make(map[Identity]AbstractOutput, len(a.Outputs))
	for id, o := range a.Outputs {
		out[id] = o.copy()
	}
	return AbstractLayout{Outputs: out}
}

// SetRelation records that na stands in direction rel relative to nb, and
// writes the inverse relation from nb to na atomically, per spec §3/§4.5's
// symmetry invariant. Both identities must already be present in the
// layout.
func (a AbstractLayout) SetRelation(na Identity, rel Direction, nb Identity) {
	oa, ok := a.Outputs[na]
	if !ok {
		return
	}
	ob, ok := a.Outputs[nb]
	if !ok {
		return
	}
	if rel == DirNone {
		delete(oa.Neighbours, nb)
		delete(ob.Neighbours, na)
		return
	}
	oa.Neighbours[nb] = rel
	ob.Neighbours[na] = rel.Inverse()
}

// Key returns the frozen identity set that indexes this layout in the
// database (spec §3, §4.4).
func (a AbstractLayout) Key() IdentitySet {
	ids := make([]Identity, 0, len(a.Outputs))
	for id := range a.Outputs {
		ids = append(ids, id)
	}
	return NewIdentitySet(ids)
}

// IdentitySet is a frozen (order-independent) set of monitor identities,
// used as the database key.
type IdentitySet string

// NewIdentitySet builds the canonical key for a set of identities: sorted,
// joined, order-independent.
func NewIdentitySet(ids []Identity) IdentitySet {
	cp := make([]string, len(ids))
	for i, id := range ids {
		cp[i] = string(id)
	}
	sort.Strings(cp)
	out := ""
	for i, s := range cp {
		if i > 0 {
			out += "\x00"
		}
		out += s
	}
	return IdentitySet(out)
}

// Members splits the set back into its identities.
func (s IdentitySet) Members() []Identity {
	if s == "" {
		return nil
	}
	parts := splitNul(string(s))
	out := make([]Identity, len(parts))
	for i, p := range parts {
		out[i] = Identity(p)
	}
	return out
}

func splitNul(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
