// Package workspace is the owned catalogue of datasets and their items.
// It is the single source of truth for geometry and visibility, and keeps
// the viewer binding in step with every mutation.
package workspace
