// Package domain holds the core value types of nodesh: node paths, cached
// node knowledge, method and signal descriptors, subscription identifiers
// and the shared error taxonomy.
//
// The package is dependency-free on purpose. Everything here is plain data
// passed between the session loop, the cache and the adapters.
package domain
