package poller

import "errors"

var (
	// ErrBusy is returned by PollOnce while another poll is in flight.
	ErrBusy = errors.New("poller: poll already in progress")

	// ErrFetchFailed wraps transport and decoding failures of the backend fetch.
	ErrFetchFailed = errors.New("poller: fetch failed")
)
