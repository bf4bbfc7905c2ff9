// Package algorithm implements traversals over a graph.Graph.
//
// Traversals run on slot indices and reuse pooled scratch buffers, so they
// allocate little beyond their result. Like every graph reader they require
// that nobody mutates the graph while they run.
package algorithm
