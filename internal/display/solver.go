package display

import "sort"

// Constraint expresses that rectangle I stands in direction Dir relative to
// rectangle J (spec §4.2). Constraints are symmetric at the call site: if
// (i, left, j) is present, (j, right, i) may or may not also be present —
// both mean the same thing.
type Constraint struct {
	I, J int
	Dir  Direction
}

type edge struct {
	to  int
	dir Direction
}

// Solve computes integer positions for sizes subject to constraints and the
// virtual-screen bounds [vsMin, vsMax]. It returns (virtualSize, positions,
// true) on success, or (_, _, false) if the input is infeasible. A non-nil
// error is returned only for malformed input (negative size, out-of-range
// index/direction) — see spec §4.2.
//
// The algorithm projects the touching constraints onto a spanning forest
// (one tree per connected component of the constraint graph): a tree edge
// pins the child's position exactly relative to its parent along the
// constrained axis and copies the parent's coordinate on the other axis
// (the simplest choice satisfying the "intervals overlap" requirement).
// Any remaining non-tree edges are verified, not re-derived. Connected
// components with no path between them are then packed left-to-right so
// they can never overlap. Finally every pair without a direct constraint is
// checked for overlap; if the construction nonetheless leaves such a pair
// overlapping, the input is reported infeasible rather than risking an
// invalid layout — this solver is deliberately conservative rather than
// exhaustively complete.
func Solve(vsMin, vsMax Pair, sizes []Pair, constraints []Constraint) (virtualSize Pair, positions []Pair, ok bool, err error) {
	n := len(sizes)
	for _, s := range sizes {
		if s.X < 0 || s.Y < 0 {
			return Pair{}, nil, false, newErr(KindLayout, "solve", ErrInvalidInput)
		}
	}
	adj := make([][]edge, n)
	seen := make(map[[3]int]bool)
	addEdge := func(i, d, j int) {
		key := [3]int{i, d, j}
		if seen[key] {
			return
		}
		seen[key] = true
		adj[i] = append(adj[i], edge{to: j, dir: Direction(d)})
	}
	for _, c := range constraints {
		if c.I < 0 || c.I >= n || c.J < 0 || c.J >= n || c.I == c.J || !c.Dir.Valid() {
			return Pair{}, nil, false, newErr(KindLayout, "solve", ErrInvalidInput)
		}
		if c.Dir == DirNone {
			continue
		}
		addEdge(c.I, int(c.Dir), c.J)
		addEdge(c.J, int(c.Dir.Inverse()), c.I)
	}
	for i := range adj {
		sort.Slice(adj[i], func(a, b int) bool {
			if adj[i][a].dir != adj[i][b].dir {
				return adj[i][a].dir < adj[i][b].dir
			}
			return adj[i][a].to < adj[i][b].to
		})
	}

	pos := make([]Pair, n)
	visited := make([]bool, n)
	var components [][]int
	feasible := true

	place := func(from Pair, d Direction, fromSize, toSize Pair) Pair {
		switch d {
		case DirLeft:
			return Pair{X: from.X + fromSize.X, Y: from.Y}
		case DirRight:
			return Pair{X: from.X - toSize.X, Y: from.Y}
		case DirAbove:
			return Pair{X: from.X, Y: from.Y + fromSize.Y}
		case DirUnder:
			return Pair{X: from.X, Y: from.Y - toSize.Y}
		default:
			return from
		}
	}
	validate := func(u, v int, d Direction) bool {
		ru := Rect{Pos: pos[u], Size: sizes[u]}
		rv := Rect{Pos: pos[v], Size: sizes[v]}
		switch d {
		case DirLeft:
			if ru.Corner().X != rv.Pos.X {
				return false
			}
			return ru.Pos.Y < rv.Corner().Y && ru.Corner().Y > rv.Pos.Y
		case DirRight:
			if rv.Corner().X != ru.Pos.X {
				return false
			}
			return ru.Pos.Y < rv.Corner().Y && ru.Corner().Y > rv.Pos.Y
		case DirAbove:
			if ru.Corner().Y != rv.Pos.Y {
				return false
			}
			return ru.Pos.X < rv.Corner().X && ru.Corner().X > rv.Pos.X
		case DirUnder:
			if rv.Corner().Y != ru.Pos.Y {
				return false
			}
			return ru.Pos.X < rv.Corner().X && ru.Corner().X > rv.Pos.X
		default:
			return true
		}
	}

	for root := 0; root < n && feasible; root++ {
		if visited[root] {
			continue
		}
		var members []int
		visited[root] = true
		pos[root] = Pair{}
		members = append(members, root)
		queue := []int{root}
		for len(queue) > 0 && feasible {
			u := queue[0]
			queue = queue[1:]
			for _, e := range adj[u] {
				v := e.to
				if !visited[v] {
					visited[v] = true
					pos[v] = place(pos[u], e.dir, sizes[u], sizes[v])
					members = append(members, v)
					queue = append(queue, v)
				} else {
					if !validate(u, v, e.dir) {
						feasible = false
						break
					}
				}
			}
		}
		components = append(components, members)
	}
	if !feasible {
		return Pair{}, nil, false, nil
	}

	// Normalise each component so its own minimum corner is (0,0).
	for _, members := range components {
		minX, minY := pos[members[0]].X, pos[members[0]].Y
		for _, i := range members {
			if pos[i].X < minX {
				minX = pos[i].X
			}
			if pos[i].Y < minY {
				minY = pos[i].Y
			}
		}
		for _, i := range members {
			pos[i].X -= minX
			pos[i].Y -= minY
		}
	}

	// Pack components left-to-right in order of their smallest member index,
	// which is already the iteration order above.
	offsetX := 0
	for _, members := range components {
		width := 0
		for _, i := range members {
			if c := pos[i].X + sizes[i].X; c > width {
				width = c
			}
		}
		for _, i := range members {
			pos[i].X += offsetX
		}
		offsetX += width
	}

	// Final global overlap check for every pair without a direct constraint.
	constrained := make(map[[2]int]bool)
	for _, c := range constraints {
		if c.Dir == DirNone {
			continue
		}
		constrained[[2]int{c.I, c.J}] = true
		constrained[[2]int{c.J, c.I}] = true
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if constrained[[2]int{i, j}] {
				continue
			}
			ri := Rect{Pos: pos[i], Size: sizes[i]}
			rj := Rect{Pos: pos[j], Size: sizes[j]}
			if ri.overlaps(rj) {
				return Pair{}, nil, false, nil
			}
		}
	}

	vs := Pair{}
	for i := 0; i < n; i++ {
		if c := pos[i].X + sizes[i].X; c > vs.X {
			vs.X = c
		}
		if c := pos[i].Y + sizes[i].Y; c > vs.Y {
			vs.Y = c
		}
	}
	if vs.X < vsMin.X {
		vs.X = vsMin.X
	}
	if vs.Y < vsMin.Y {
		vs.Y = vsMin.Y
	}
	if vs.X > vsMax.X || vs.Y > vsMax.Y {
		return Pair{}, nil, false, nil
	}
	for i := 0; i < n; i++ {
		if pos[i].X < 0 || pos[i].Y < 0 {
			return Pair{}, nil, false, nil
		}
	}

	return vs, pos, true, nil
}
