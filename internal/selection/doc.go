// Package selection holds the multi-selection state of the fleet views.
//
// A Store tracks four independent collections (selected devices, containers,
// low-voltage cabinets and PDU sockets) plus a tag index that records how
// every selected miner is addressed within its container:
//
//	container bucket -> miner id -> fleet.Address
//
// A miner with a known container and position is addressed by position
// ("pos-a1_b2"); any other miner is addressed by identity ("id-m1"), and a
// miner with no container lives in fleet.NoContainerBucket. The index holds at
// most one address per (bucket, miner) pair, so a miner can never be selected
// by position and identity at the same time.
//
// Thread Safety:
//
// All Store methods are safe for concurrent use. Every mutation takes the
// write lock once, so readers never observe a half-applied transition or a
// partially reset store.
//
// Persistence:
//
// Snapshot and Restore convert the store to and from a JSON-friendly form.
// SQLiteSnapshotRepository persists snapshots and saved filter selections.
package selection
