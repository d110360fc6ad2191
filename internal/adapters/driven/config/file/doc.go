// Package file provides file-based implementations of driven port
// interfaces. These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: typed lookups against a user-edited TOML file for
//     index roots, rescan interval and extraction budgets
package file
