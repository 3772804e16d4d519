/*
Package cache provides the bounded result cache at the heart of the
ScanForge analysis pipeline.

The store maps normalized file paths to cached analysis results. Every
lookup validates the entry against a freshly computed content fingerprint
(mtime, size, sha256) and against the config hash the results were produced
under; any mismatch removes the entry and reports a miss with a reason
counter. Capacity is bounded by entry count and by an estimated memory
footprint, enforced before every insertion by evicting the entries with the
lowest composite priority score (log access frequency x hourly recency decay
x inverse file size).

The cache degrades rather than fails: deleted files, corrupted snapshots,
and oversized entries all resolve to misses, cold starts, or transient
overshoot, never an error that stops an analysis run. The only errors
surfaced to callers are fingerprint failures on Put and I/O or parse
failures on deliberate snapshot save/load.

The whole store sits under one coarse lock. The expensive work (analyzing a
file) happens outside the cache between a miss and the following Put, so
fine-grained locking would add complexity without measurable benefit.
*/
package cache
