// Package driven defines the driven (outbound) port interfaces.
//
// Driven ports are consumed by the core and implemented by adapters:
// storage backends, the filesystem watch capability, content extractors
// and configuration. The core depends only on these interfaces, never
// on concrete adapters.
package driven
