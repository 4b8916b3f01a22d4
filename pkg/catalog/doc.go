// Package catalog describes pipe specifications and the fittings available
// for each of them.
//
// The pipeline never reads catalog files directly. It is handed a
// SpecCatalog and asks it for specs by name; Catalog is the in-memory
// implementation and Load fills one from HCL or HCL-JSON files.
package catalog
