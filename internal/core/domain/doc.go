// Package domain defines the core entities for Loupe.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Entry: One indexed filesystem object (file, directory, symlink)
//   - FileID: Device+inode identity that survives renames
//   - FileEvent: A normalized filesystem change notification
//   - SearchResult: A ranked query hit
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
