// Package geom provides the vector math, isometric snapping and centerline
// primitive records shared by every stage of the spool pipeline.
//
// Vectors are the sdfx v2/v3 types so that the same values flow from the
// topology builder through to the DXF sink without conversion.
package geom
