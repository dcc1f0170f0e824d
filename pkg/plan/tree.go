package plan

// Recursion tells TransformUp how to continue after a node was visited.
type Recursion int

const (
	// Continue visits the parent next.
	Continue Recursion = iota
	// Jump skips the ancestors of the node until the walk reaches the
	// next leaf.
	Jump
	// Stop ends the walk; the remaining nodes are returned unchanged.
	Stop
)

func (r Recursion) String() string {
	switch r {
	case Jump:
		return "jump"
	case Stop:
		return "stop"
	default:
		return "continue"
	}
}

// Transformed is the result of visiting one node.
type Transformed struct {
	Node      Node
	Changed   bool
	Recursion Recursion
}

func Unchanged(n Node) Transformed { return Transformed{Node: n} }

func Yes(n Node) Transformed { return Transformed{Node: n, Changed: true} }

// TransformUp rewrites the plan bottom-up. A child answering Jump makes
// its parent skip f and pass the Jump on; a sibling visited later starts
// over from its own leaves.
func TransformUp(n Node, f func(Node) (Transformed, error)) (Transformed, error) {
	children := n.Children()
	rec := Continue
	changed := false

	if len(children) > 0 {
		out := make([]Node, len(children))
		copy(out, children)
		for i, c := range children {
			t, err := TransformUp(c, f)
			if err != nil {
				return Transformed{}, err
			}
			out[i] = t.Node
			changed = changed || t.Changed
			rec = t.Recursion
			if rec == Stop {
				break
			}
		}
		if changed {
			n = n.WithChildren(out)
		}
	}

	if rec != Continue {
		return Transformed{Node: n, Changed: changed, Recursion: rec}, nil
	}

	t, err := f(n)
	if err != nil {
		return Transformed{}, err
	}
	t.Changed = t.Changed || changed
	return t, nil
}

// MapExpressions rewrites every expression of n with f.
func MapExpressions(n Node, f func(Expr) (Expr, error)) (Transformed, error) {
	exprs := n.Expressions()
	if len(exprs) == 0 {
		return Unchanged(n), nil
	}

	out := make([]Expr, len(exprs))
	changed := false
	for i, e := range exprs {
		ne, err := f(e)
		if err != nil {
			return Transformed{}, err
		}
		out[i] = ne
		changed = changed || ne != e
	}
	if !changed {
		return Unchanged(n), nil
	}
	return Yes(n.WithExpressions(out)), nil
}

// Walk calls f on n and its descendants, parents first.
func Walk(n Node, f func(Node)) {
	f(n)
	for _, c := range n.Children() {
		Walk(c, f)
	}
}

// Scans returns the table scans of the plan.
func Scans(n Node) []*TableScan {
	var scans []*TableScan
	Walk(n, func(n Node) {
		if s, ok := n.(*TableScan); ok {
			scans = append(scans, s)
		}
	})
	return scans
}
