package repository

import "hash/fnv"

// Treap ordered by rating DESC, then player id ASC (deterministic).
// "less" means ranks earlier, so an in-order traversal yields the
// leaderboard from best to worst. Priorities come from a hash of the id,
// which keeps the tree balanced in expectation while staying reproducible.

type node struct {
	id     string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) appears before (bRating, bID).
func less(aRating float64, aID string, bRating float64, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating float64) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: priority(id), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, rating)
		}
	case less(rating, id, n.rating, n.id):
		n.left = remove(n.left, id, rating)
	default:
		n.right = remove(n.right, id, rating)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based position of (id, rating) in the tree.
func rankOf(n *node, id string, rating float64) int {
	r := 0
	for n != nil {
		switch {
		case id == n.id:
			return r + nsize(n.left) + 1
		case less(rating, id, n.rating, n.id):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collect appends up to limit ids in rank order.
func collect(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	collect(n.right, limit, out)
}
