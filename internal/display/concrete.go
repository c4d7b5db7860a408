package display

import "sort"

// ConcreteOutput is one output's entry in a ConcreteLayout: pixel-accurate
// state as reported by (or pushed to) the backend. Spec §3.
type ConcreteOutput struct {
	Enabled       bool
	Transform     Transform
	BaseSize      Pair // pre-transform pixel size (mode dimensions)
	Position      Pair // absolute top-left in virtual-screen coordinates
	PreferredSize Pair // backend-declared best mode
	EDID          Identity
	HasEDID       bool
}

// Size returns the displayed (post-transform) pixel size of the output.
func (o ConcreteOutput) Size() Pair {
	return o.Transform.ApplyToSize(o.BaseSize)
}

// Rect returns the output's pixel rectangle using its displayed size.
func (o ConcreteOutput) Rect() Rect {
	return Rect{Pos: o.Position, Size: o.Size()}
}

// ConcreteLayout is the pixel-accurate arrangement of spec §3.
type ConcreteLayout struct {
	Outputs           map[string]ConcreteOutput
	VirtualScreenSize Pair
	VirtualScreenMin  Pair
	VirtualScreenMax  Pair
}

// NewConcreteLayout returns an empty concrete layout (the manager's initial
// current_concrete, per spec §4.5).
func NewConcreteLayout() ConcreteLayout {
	return ConcreteLayout{Outputs: map[string]ConcreteOutput{}}
}

// Equal reports whether two concrete layouts have identical outputs and
// the same virtual-screen size; the virtual-screen min/max bounds are not
// compared. Used by the manager to detect the "Same"
// classification (spec §4.5 step 1).
func (c ConcreteLayout) Equal(o ConcreteLayout) bool {
	if c.VirtualScreenSize != o.VirtualScreenSize {
		return false
	}
	if len(c.Outputs) != len(o.Outputs) {
		return false
	}
	for name, out := range c.Outputs {
		oo, ok := o.Outputs[name]
		if !ok || out != oo {
			return false
		}
	}
	return true
}

func (c ConcreteLayout) sortedNames() []string {
	names := make([]string, 0, len(c.Outputs))
	for n := range c.Outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EdidValid reports whether every output in the layout has a usable
// monitor identity (spec §4.5 classification step 2).
func (c ConcreteLayout) EdidValid() bool {
	for _, o := range c.Outputs {
		if !o.HasEDID {
			return false
		}
	}
	return true
}

// IdentitySet returns the frozen set of monitor identities present in the
// layout (enabled or not — spec's Manager.key keys on every output's
// identity, disabled outputs included, since the set identifies *what is
// plugged in*, not what is currently active).
func (c ConcreteLayout) IdentitySet() IdentitySet {
	var ids []Identity
	for _, o := range c.Outputs {
		if o.HasEDID {
			ids = append(ids, o.EDID)
		}
	}
	return NewIdentitySet(ids)
}

// Manual reports whether the layout violates any of the four
// "automatic"-layout invariants of spec §3: every output enabled, every
// output identified with pairwise-distinct identities, every base size at
// its preferred mode, and no two enabled outputs' rectangles overlapping.
func (c ConcreteLayout) Manual() bool {
	seen := make(map[Identity]bool)
	names := c.sortedNames()
	for _, name := range names {
		o := c.Outputs[name]
		if !o.Enabled {
			return true
		}
		if !o.HasEDID {
			return true
		}
		if seen[o.EDID] {
			return true
		}
		seen[o.EDID] = true
		if o.BaseSize != o.PreferredSize {
			return true
		}
	}
	for i := 0; i < len(names); i++ {
		oi := c.Outputs[names[i]]
		if !oi.Enabled {
			continue
		}
		for j := i + 1; j < len(names); j++ {
			oj := c.Outputs[names[j]]
			if !oj.Enabled {
				continue
			}
			if oi.Rect().overlaps(oj.Rect()) {
				return true
			}
		}
	}
	return false
}

// OutputInfo is the (output name, preferred size) a monitor identity binds
// to when materialising an AbstractLayout (spec §4.3).
type OutputInfo struct {
	Name          string
	PreferredSize Pair
}

// FromAbstract materialises an AbstractLayout into a ConcreteLayout
// (spec §4.3 "Abstract -> Concrete"). info maps each identity in a to the
// output name and preferred size it should bind to.
func FromAbstract(a AbstractLayout, vsMin, vsMax Pair, info map[Identity]OutputInfo) (ConcreteLayout, error) {
	ids := make([]Identity, 0, len(a.Outputs))
	for id := range a.Outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	index := make(map[Identity]int, len(ids))
	sizes := make([]Pair, len(ids))
	names := make([]string, len(ids))
	for i, id := range ids {
		oi, ok := info[id]
		if !ok {
			return ConcreteLayout{}, newErr(KindLayout, "from_abstract", ErrInvalidInput)
		}
		index[id] = i
		names[i] = oi.Name
		t := a.Outputs[id].Transform
		sizes[i] = t.ApplyToSize(oi.PreferredSize)
	}

	var constraints []Constraint
	seen := make(map[[3]int]bool)
	for _, id := range ids {
		i := index[id]
		for nb, rel := range a.Outputs[id].Neighbours {
			j, ok := index[nb]
			if !ok || rel == DirNone {
				continue
			}
			key := [3]int{i, int(rel), j}
			rkey := [3]int{j, int(rel.Inverse()), i}
			if seen[key] || seen[rkey] {
				continue
			}
			seen[key] = true
			constraints = append(constraints, Constraint{I: i, Dir: rel, J: j})
		}
	}

	vs, positions, ok, err := Solve(vsMin, vsMax, sizes, constraints)
	if err != nil {
		return ConcreteLayout{}, err
	}
	if !ok {
		return ConcreteLayout{}, newErr(KindLayout, "from_abstract", ErrInfeasible)
	}

	out := ConcreteLayout{
		Outputs:           make(map[string]ConcreteOutput, len(ids)),
		VirtualScreenSize: vs,
		VirtualScreenMin:  vsMin,
		VirtualScreenMax:  vsMax,
	}
	for i, id := range ids {
		oi := info[id]
		out.Outputs[oi.Name] = ConcreteOutput{
			Enabled:       true,
			Transform:     a.Outputs[id].Transform,
			BaseSize:      oi.PreferredSize,
			Position:      positions[i],
			PreferredSize: oi.PreferredSize,
			EDID:          id,
			HasEDID:       true,
		}
	}
	return out, nil
}

// ToAbstract learns an AbstractLayout from this (non-manual) ConcreteLayout
// (spec §4.3 "Concrete -> Abstract"). Two enabled outputs are considered
// neighbours when one's edge exactly touches the other's and their
// perpendicular intervals overlap strictly.
func (c ConcreteLayout) ToAbstract() (AbstractLayout, error) {
	if c.Manual() {
		return AbstractLayout{}, newErr(KindLayoutFatal, "to_abstract", ErrCannotAbstract)
	}
	names := c.sortedNames()
	outputs := make(map[Identity]AbstractOutput, len(names))
	for _, name := range names {
		o := c.Outputs[name]
		outputs[o.EDID] = newAbstractOutput(o.Transform)
	}
	abstract := AbstractLayout{Outputs: outputs}

	for i, na := range names {
		oa := c.Outputs[na]
		if !oa.Enabled {
			continue
		}
		ra := oa.Rect()
		for j, nb := range names {
			if i == j {
				continue
			}
			ob := c.Outputs[nb]
			if !ob.Enabled {
				continue
			}
			rb := ob.Rect()
			if ra.Corner().X == rb.Pos.X && ra.Pos.Y < rb.Corner().Y && ra.Corner().Y > rb.Pos.Y {
				abstract.SetRelation(oa.EDID, DirLeft, ob.EDID)
			}
			if ra.Corner().Y == rb.Pos.Y && ra.Pos.X < rb.Corner().X && ra.Corner().X > rb.Pos.X {
				abstract.SetRelation(oa.EDID, DirAbove, ob.EDID)
			}
		}
	}
	return abstract, nil
}
