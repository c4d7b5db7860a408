package display

import "fmt"

// Transform is the normal form (reflect_x, rotation) described in spec §4.1:
// apply an x-reflection first, then rotate counter-clockwise by rotation
// degrees. Values are immutable; every derivation returns a fresh Transform.
type Transform struct {
	Reflect  bool
	Rotation int // one of 0, 90, 180, 270
}

// IdentityTransform returns the identity transform (no reflection, no
// rotation).
func IdentityTransform() Transform { return Transform{} }

// FromParts builds a Transform directly from its normal-form components.
func FromParts(reflectX bool, rotation int) Transform {
	return Transform{Reflect: reflectX, Rotation: ((rotation % 360) + 360) % 360}
}

// InvalidRotation is returned by Rotate when delta is not a multiple of 90.
type InvalidRotation struct{ Delta int }

func (e *InvalidRotation) Error() string {
	return fmt.Sprintf("display: rotation delta %d is not a multiple of 90", e.Delta)
}

// Rotate returns a new Transform rotated by delta degrees (must be a
// multiple of 90, may be negative).
func (t Transform) Rotate(delta int) (Transform, error) {
	if delta%90 != 0 {
		return Transform{}, &InvalidRotation{Delta: delta}
	}
	return Transform{Reflect: t.Reflect, Rotation: ((t.Rotation+delta)%360 + 360) % 360}, nil
}

// MustRotate is Rotate but panics on an invalid delta; used where delta is
// a compile-time constant multiple of 90.
func (t Transform) MustRotate(delta int) Transform {
	r, err := t.Rotate(delta)
	if err != nil {
		panic(err)
	}
	return r
}

// ReflectX returns a new Transform with an additional x-reflection applied.
func (t Transform) ReflectX() Transform {
	return Transform{Reflect: !t.Reflect, Rotation: t.Rotation}
}

// ReflectY returns a new Transform with an additional y-reflection applied,
// defined as reflect_x composed with a 180 degree rotation (spec §4.1).
func (t Transform) ReflectY() Transform {
	return t.ReflectX().MustRotate(180)
}

// Inverted reports whether applying t to a (w,h) rectangle swaps the
// dimensions, i.e. rotation is 90 or 270.
func (t Transform) Inverted() bool {
	return t.Rotation == 90 || t.Rotation == 270
}

// ApplyToSize returns the displayed size of a rectangle whose pre-transform
// size is size.
func (t Transform) ApplyToSize(size Pair) Pair {
	if t.Inverted() {
		return size.Swap()
	}
	return size
}

// Equal reports structural equality.
func (t Transform) Equal(o Transform) bool {
	return t.Reflect == o.Reflect && t.Rotation == o.Rotation
}

// Dump returns the serialisable (reflect_x, rotation) pair (spec §4.1, §6).
func (t Transform) Dump() (bool, int) { return t.Reflect, t.Rotation }

// LoadTransform is the inverse of Dump.
func LoadTransform(reflectX bool, rotation int) Transform {
	return FromParts(reflectX, rotation)
}
