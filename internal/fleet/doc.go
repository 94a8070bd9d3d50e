// Package fleet holds the telemetry model of the mining fleet and the pure
// functions that prepare it for list display.
//
// # Pipeline
//
//	raw devices ──▶ GroupCabinets ──▶ Enrich ──▶ MergeAndSort ──▶ Paginate
//	                (sensors only)    (filter,    (dedup by id,    (page window)
//	                                   pool data)  numeric-aware)
//
// Every function in this package is pure: inputs are never modified and
// nothing is cached between calls, so calling one twice with the same input
// yields the same output.
//
// # Addressing
//
// A miner can be addressed by identity ("id-<id>") or by position
// ("pos-<slot>"). Address is the tagged form of both; IdentityTag,
// PositionTag and ParseTag convert to and from the wire strings used by the
// dashboard. ContainerBucket resolves the selection bucket of a device,
// falling back to NoContainerBucket.
//
// # Missing data
//
// Absent snapshots, containers or positions never produce errors. They
// degrade to sentinel buckets, the DeviceNotFound/LastInfoNotFound
// placeholders, or are filtered out (cabinets without a root position).
package fleet
