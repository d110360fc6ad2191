// Package memory provides in-memory implementations of the storage
// ports. They back unit tests and library embeddings that do not need
// durability. Posting sets are kept as sorted slices so the evaluator
// gets the same merge-friendly ordering the SQLite adapter provides.
package memory
