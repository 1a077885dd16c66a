package qbufcore

// Status is the lifecycle state of a QBuf.
//
// Transitions: collecting_chunks -> serving_fetches -> expiring -> expired.
// A qbuf is removed from the manager's table once expired; there is no
// state after that.
type Status string

const (
	// StatusCollectingChunks is the initial state: chunks are still being
	// accepted and no fetch may be served.
	StatusCollectingChunks Status = "collecting_chunks"

	// StatusServingFetches means chunks_got == chunks_need; the qbuf is
	// immutable and fetch reads are served from staging or the backend.
	StatusServingFetches Status = "serving_fetches"

	// StatusExpiring means the qbuf is idle-timed-out or force-expired while
	// incomplete, and is awaiting the backend's expiry acknowledgement.
	StatusExpiring Status = "expiring"

	// StatusExpired means the backend has acknowledged the drop; the qbuf is
	// removed from the table on the next lifecycle tick.
	StatusExpired Status = "expired"
)

// InitStatus is the manager's own readiness state, distinct from any QBuf's
// Status.
type InitStatus string

const (
	// InitInProgress means the backend is still being opened; every qbuf
	// command returns ErrNotReady (see Manager.notReady). The
	// max-query-data-size accessors and KillAll are not gated.
	InitInProgress InitStatus = "init_in_progress"

	// InitFailed means backend initialization failed permanently. Recovery
	// requires a process restart.
	InitFailed InitStatus = "init_failed"

	// InitReady means the backend opened successfully and commands may run.
	InitReady InitStatus = "ready"
)
