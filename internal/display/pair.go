// Package display implements the layout engine: transform algebra, the
// constraint solver, the abstract/concrete layout representations, the
// remembered-layout database, and the manager state machine that drives
// reconfiguration against a Backend.
package display

// Pair is an (x, y) or (w, h) integer pair, used throughout the layout
// engine for both positions and sizes.
type Pair struct {
	X, Y int
}

// Swap returns a new Pair with X and Y exchanged.
func (p Pair) Swap() Pair { return Pair{X: p.Y, Y: p.X} }

// Add returns p + o.
func (p Pair) Add(o Pair) Pair { return Pair{X: p.X + o.X, Y: p.Y + o.Y} }

// Sub returns p - o.
func (p Pair) Sub(o Pair) Pair { return Pair{X: p.X - o.X, Y: p.Y - o.Y} }

// Neg returns -p.
func (p Pair) Neg() Pair { return Pair{X: -p.X, Y: -p.Y} }

// LessEq reports whether p is componentwise <= o.
func (p Pair) LessEq(o Pair) bool { return p.X <= o.X && p.Y <= o.Y }

// GreaterEq reports whether p is componentwise >= o.
func (p Pair) GreaterEq(o Pair) bool { return p.X >= o.X && p.Y >= o.Y }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	Pos  Pair
	Size Pair
}

// Corner returns the bottom-right corner (exclusive) of the rectangle.
func (r Rect) Corner() Pair { return r.Pos.Add(r.Size) }

// overlaps reports whether r and o overlap using open-interval semantics on
// both axes (touching edges do not count as overlap).
func (r Rect) overlaps(o Rect) bool {
	rc, oc := r.Corner(), o.Corner()
	if r.Pos.X >= oc.X || o.Pos.X >= rc.X {
		return false
	}
	if r.Pos.Y >= oc.Y || o.Pos.Y >= rc.Y {
		return false
	}
	return true
}
