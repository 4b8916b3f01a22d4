// Package factory turns plan components into fitting geometry.
//
// For every component occurrence in a build plan the Resolver looks up the
// catalog entry and works out how much straight pipe the fitting takes up on
// the side it is entered from and on the side it is left by. The adjuster
// sums those take-ups to reconcile lengths and the centerline assembler
// draws from the same Fitting, so the two never disagree.
package factory
