package qbufcore

import "errors"

// Error kinds returned across the qbuf boundary. Command replies carry these
// verbatim (never wrapped) so callers can compare with errors.Is; the only
// other errors are wrapped row encode/decode and backend scan failures, and
// KillAll's aggregated error. See spec.md §6 "Error vocabulary" and §7
// "Error handling design".
var (
	// ErrNotReady is returned by every qbuf command issued before the
	// manager's backend has finished initializing, and by Fetch while the
	// qbuf is still collecting chunks.
	ErrNotReady = errors.New("qbuf: not ready")

	// ErrInitFailed is returned for every command once backend
	// initialization has failed permanently.
	ErrInitFailed = errors.New("qbuf: backend init failed")

	// ErrBadRef is returned when a QBufRef does not name a live qbuf.
	ErrBadRef = errors.New("qbuf: bad ref")

	// ErrAlreadyFinished is returned by BatchPut when the qbuf has already
	// left collecting_chunks.
	ErrAlreadyFinished = errors.New("qbuf: already finished")

	// ErrQuotaExceeded is returned by GetOrCreate (soft watermark) and
	// BatchPut (hard watermark). It is advisory: callers may back off and
	// retry.
	ErrQuotaExceeded = errors.New("qbuf: quota exceeded")

	// ErrBackendPutFailed is returned when a chunk write to the KV backend
	// fails. The qbuf's counters are left unchanged; the chunk may be
	// retried.
	ErrBackendPutFailed = errors.New("qbuf: backend put failed")

	// ErrNotAQbuf is returned by BackendExpiryRequest when the bucket tag
	// does not identify the qbuf subsystem.
	ErrNotAQbuf = errors.New("qbuf: not a qbuf bucket")

	// ErrQueryNonPageable is returned by callers attempting to create a qbuf
	// for a query with no LIMIT/OFFSET/ORDER BY; qbufcore never returns it
	// itself (the decision belongs to the caller constructing Options), but
	// it is part of the shared vocabulary so callers have a single error set
	// to switch on.
	ErrQueryNonPageable = errors.New("qbuf: query not pageable")
)
