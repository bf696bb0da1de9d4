// Package core defines the shared language of the sorlineage system.
//
// This package contains:
//   - The input table catalog (Catalog, CatalogRecord)
//   - Raw lineage rows as delivered by readers (LineageRecord)
//   - The flat lineage index and its slices (Index, Key, Entry, Slice)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
