// Package topology lifts a 2D isometric sketch into a classified 3D pipe
// graph.
//
// The graph is undirected and simple. Node coordinates are fixed once the
// builder has placed them; every node is classified as an endpoint, a bend
// or a tee according to its degree.
package topology
