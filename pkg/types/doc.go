// Package types defines the core data structures shared across memkeeper:
// entities, relations, knowledge graphs, search options and pagination
// envelopes. It has no dependencies on storage or search packages so every
// layer can import it freely.
package types
