// Package nodesh is an interactive explorer for hierarchical RPC node
// trees: it connects to a broker, discovers nodes and methods on demand,
// caches what it learns, and offers a completing command line to call them.
package nodesh

// Version is the release version, overridable at build time via
// -ldflags "-X github.com/nodesh/nodesh.Version=...".
var Version = "0.1.0-dev"
