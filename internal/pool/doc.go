/*
Package pool provides reusable slice buffers for the analysis pipeline's
hot-path allocations.

Repeated analysis of many files churns the same short-lived allocations:
a content buffer per file, a findings slice per file, a path list per
directory walk. SlicePool keeps a bounded free list of those buffers behind
a single mutex; acquire and release are O(1) and brief, so one lock per pool
is not a contention point. Buffers that grew past four times the pool's
default capacity are discarded on release rather than retained.

Manager bundles one pool per shape and is injected explicitly at pipeline
startup. Pools never track outstanding handles; a handle that is never
released simply loses its buffer to the garbage collector.
*/
package pool
