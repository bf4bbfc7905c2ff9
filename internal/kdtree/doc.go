// Package kdtree implements an immutable, array-backed KD-tree with
// nearest-neighbor search and convex-polytope clipping.
//
// The tree is stored implicitly: the node for the index range [lo, hi) sits
// at mid = (lo+hi)/2, its left subtree is [lo, mid) and its right subtree is
// [mid+1, hi). The split dimension of a node is its depth modulo the number
// of dimensions. A subtree is therefore just an index range, which lets clip
// results report whole subtrees without copying.
package kdtree
