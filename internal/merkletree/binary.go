// Copyright 2025 Shadow Atlas Contributors
//
// Package merkletree builds the four-level hierarchical Merkle commitment
// (district/region -> country -> continent -> global) described in
// spec.md §4.6, using field.HashPair at every level and the odd-node
// promotion rule (no zero-padding).

package merkletree

import "github.com/shadowatlas/core/internal/field"

// Step is one hop of a sibling path from a node toward a root. Promoted ==
// true means this level had no sibling (the node was promoted unchanged)
// and Sibling/IsRight are unused.
type Step struct {
	Promoted bool
	Sibling  field.Element
	IsRight  bool // true if the node being proved is the right child at this level
}

// buildLevel pairs items left-to-right with HashPair, promoting an
// unpaired final item unchanged to the next level, and returns the level's
// root together with each input item's proof path to that root.
//
// The order of items is never altered here: callers are responsible for
// sorting by the appropriate key before calling buildLevel, since ordering
// is what makes the tree deterministic regardless of arrival order (§4.6,
// §5 ordering guarantees).
func buildLevel(items []field.Element) (field.Element, [][]Step) {
	if len(items) == 0 {
		return field.Zero(), nil
	}
	if len(items) == 1 {
		return items[0], [][]Step{nil}
	}

	paths := make([][]Step, len(items))

	level := make([]field.Element, len(items))
	copy(level, items)
	// levelOwners[i] lists the original items beneath node i of the current
	// level, so each pairing can append a step to every one of their paths
	// as the tree is built bottom-up.
	levelOwners := make([][]int, len(level))
	for i := range level {
		levelOwners[i] = []int{i}
	}

	for len(level) > 1 {
		var next []field.Element
		var nextOwners [][]int

		i := 0
		for i < len(level) {
			if i+1 < len(level) {
				left, right := level[i], level[i+1]
				parent := field.HashPair(left, right)

				for _, owner := range levelOwners[i] {
					paths[owner] = append(paths[owner], Step{Sibling: right, IsRight: false})
				}
				for _, owner := range levelOwners[i+1] {
					paths[owner] = append(paths[owner], Step{Sibling: left, IsRight: true})
				}

				next = append(next, parent)
				nextOwners = append(nextOwners, append(append([]int{}, levelOwners[i]...), levelOwners[i+1]...))
				i += 2
			} else {
				// Odd node out: promoted unchanged, no sibling recorded at
				// this level.
				for _, owner := range levelOwners[i] {
					paths[owner] = append(paths[owner], Step{Promoted: true})
				}
				next = append(next, level[i])
				nextOwners = append(nextOwners, levelOwners[i])
				i++
			}
		}

		level = next
		levelOwners = nextOwners
	}

	return level[0], paths
}

// VerifyPath recomputes a root from leafHash by walking path in order,
// rejecting (returning false) only via comparison against the expected
// root at the call site; VerifyPath itself just performs the recomputation.
func VerifyPath(leafHash field.Element, path []Step) field.Element {
	acc := leafHash
	for _, step := range path {
		if step.Promoted {
			continue
		}
		if step.IsRight {
			acc = field.HashPair(step.Sibling, acc)
		} else {
			acc = field.HashPair(acc, step.Sibling)
		}
	}
	return acc
}
