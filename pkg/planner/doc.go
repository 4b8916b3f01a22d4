// Package planner splits a classified pipe graph into edge-disjoint branches
// and encodes each branch as an ordered list of fittings and straight pipes.
//
// A branch starts at an open end and follows the run of every tee it meets.
// Edges left over after all open ends are exhausted (branches between tees,
// closed loops) are walked in a second pass, so every edge of the graph
// belongs to exactly one branch.
package planner
