// Package poller fetches the fleet device list from the backend and feeds
// each completed poll to the list-view pipeline.
//
// One poll is: mark the view as fetching, GET the backend list endpoint,
// overlay locally stored comments, join the pool worker hashrates and
// ingest the result as a single tick. Polls never overlap. A failed fetch
// is logged and the previous tick is kept.
package poller
