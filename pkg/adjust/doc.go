// Package adjust reconciles the drawn length of a branch with the pipe its
// fittings take up.
//
// Any surplus is shared out evenly as straight pipe. A shortfall is
// recovered by cutting fitting tangents: first within their comfort margin,
// then down to their physical floor. When even that is not enough the
// branch cannot be built and an *ImpossibleBuildError reports how much
// room is missing.
package adjust
