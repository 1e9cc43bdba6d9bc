package simmatch

// DistanceFunc measures two values of a metric space. It must return values
// in [0, MaxDistance] and satisfy the triangle inequality.
type DistanceFunc[T any] func(a, b T) int

// Tree is a BK-tree over a discrete metric bounded by MaxDistance. Children
// live in a slice indexed by their distance to the parent, so the tree only
// suits small distances such as Hamming distance between fingerprints.
// The first inserted value becomes the root and the tree is never rebalanced.
type Tree[T any] struct {
	root     *bkNode[T]
	distance DistanceFunc[T]
	size     int
}

type bkNode[T any] struct {
	value    T
	children []*bkNode[T]
}

// Hit is a value found by Query together with its distance to the query.
type Hit[T any] struct {
	Value    T
	Distance int
}

// NewTree returns an empty tree ordered by distance.
func NewTree[T any](distance DistanceFunc[T]) *Tree[T] {
	return &Tree[T]{distance: distance}
}

// Insert adds v to the tree.
func (t *Tree[T]) Insert(v T) {
	t.size++
	if t.root == nil {
		t.root = &bkNode[T]{value: v}
		return
	}
	current := t.root
	for {
		d := t.distance(v, current.value)
		if child := current.child(d); child != nil {
			current = child
			continue
		}
		current.setChild(d, &bkNode[T]{value: v})
		return
	}
}

// Query returns every value within threshold of v, in traversal order.
// Thresholds above MaxDistance match everything.
func (t *Tree[T]) Query(v T, threshold int) []Hit[T] {
	if t.root == nil || threshold < 0 {
		return nil
	}
	if threshold > MaxDistance {
		threshold = MaxDistance
	}
	var hits []Hit[T]
	t.query(t.root, v, threshold, &hits)
	return hits
}

func (t *Tree[T]) query(node *bkNode[T], v T, threshold int, hits *[]Hit[T]) {
	d := t.distance(v, node.value)
	if d <= threshold {
		*hits = append(*hits, Hit[T]{Value: node.value, Distance: d})
	}
	if len(node.children) == 0 {
		return
	}
	lo := d - threshold
	if lo < 0 {
		lo = 0
	}
	hi := d + threshold
	if hi >= len(node.children) {
		hi = len(node.children) - 1
	}
	for slot := lo; slot <= hi; slot++ {
		if child := node.children[slot]; child != nil {
			t.query(child, v, threshold, hits)
		}
	}
}

// Len returns the number of inserted values.
func (t *Tree[T]) Len() int { return t.size }

// Empty reports whether nothing has been inserted.
func (t *Tree[T]) Empty() bool { return t.root == nil }

// Walk visits nodes in pre-order. visit receives the value, the slot it
// occupies under its parent (-1 for the root) and its depth.
func (t *Tree[T]) Walk(visit func(v T, slot, depth int)) {
	if t.root == nil {
		return
	}
	walkNode(t.root, -1, 0, visit)
}

func walkNode[T any](n *bkNode[T], slot, depth int, visit func(v T, slot, depth int)) {
	visit(n.value, slot, depth)
	for d, child := range n.children {
		if child != nil {
			walkNode(child, d, depth+1, visit)
		}
	}
}

func (n *bkNode[T]) child(d int) *bkNode[T] {
	if d < len(n.children) {
		return n.children[d]
	}
	return nil
}

func (n *bkNode[T]) setChild(d int, child *bkNode[T]) {
	if d >= len(n.children) {
		grown := make([]*bkNode[T], d+1)
		copy(grown, n.children)
		n.children = grown
	}
	n.children[d] = child
}
