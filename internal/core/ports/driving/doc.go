// Package driving defines the driving (inbound) port interfaces.
//
// Driving ports are implemented by the core services and consumed by
// frontends: the CLI, the watch daemon, or a host program embedding
// Loupe as a library.
package driving
