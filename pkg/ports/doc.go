// Package ports defines the boundary contracts nodesh consumes: the RPC
// client connection, and the persistent blob store backing the node cache.
// Adapters live under pkg/adapters.
package ports
