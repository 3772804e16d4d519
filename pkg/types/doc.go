/*
Package types provides the shared data structures and interfaces for the
ScanForge performance core.

The package is a dependency leaf: it imports nothing from the rest of the
module so that internal/cache, internal/pool, and the analysis pipeline can
all share the Finding payload type, the CacheStats counter aggregate, and the
small contracts (ResultStore, BufferPools) without import cycles.

Finding is deliberately opaque to the cache: the cache sizes, copies, and
serializes findings but never inspects them. CacheStats carries only
cumulative counters; derived figures (hit rate, miss rate, time saved) are
computed by accessor methods so there is a single source of truth.
*/
package types
