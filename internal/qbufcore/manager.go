package qbufcore

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/dreamware/qbuf/internal/qbufcore/backend"
	"github.com/dreamware/qbuf/internal/qbufcore/keycodec"
	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

// CreateResult reports whether GetOrCreate allocated a fresh qbuf or found a
// matching one.
//
// Only Created is ever returned today: spec.md §9's open question
// "Duplicate-query deduplication" leaves the Existing branch unreachable, as
// the spec explicitly sanctions. Callers should still switch on it rather
// than assume Created, since a future revision may start returning Existing
// without otherwise changing GetOrCreate's signature.
type CreateResult int

const (
	Created CreateResult = iota
	Existing
)

// FetchResult is the shape Fetch returns on success.
//
// Fields:
//   - Columns: the qbuf's schema columns, in SELECT order. Stable for the
//     lifetime of the qbuf; every Row's Values slice lines up with Columns
//     positionally.
//   - Rows: the requested page, already in the qbuf's ORDER BY order.
type FetchResult struct {
	Columns []qbuftypes.Column
	Rows    []qbuftypes.Row
}

// Manager is the QBuf Manager of spec.md §4.3: the single owner of the qbuf
// table and its aggregate size accounting for one process.
//
// Concurrency model:
//
// Manager is an actor. A dedicated goroutine (run) is the only code that
// ever reads or writes the fields below; every exported method builds a
// command value, sends it on cmds, and blocks on a per-command reply
// channel until the actor has applied it. This is the Go realization of
// spec.md §9's "owning task with an inbound command channel... replies use
// per-command reply channels" — callers never take a lock, and the actor
// never takes one either, because nothing outside run ever touches this
// struct's fields.
//
// Lifecycle:
//
// NewManager returns a Manager whose backend is still opening in the
// background. Every qbuf command (GetOrCreate, Delete, BatchPut,
// SetReadyNotifier, Fetch, GetExpiry, SetExpiry, BackendExpiryRequest)
// called before backend init completes returns ErrNotReady; if init fails,
// each of them returns ErrInitFailed permanently — there is no retry path
// short of constructing a new Manager. GetMaxQueryDataSize,
// SetMaxQueryDataSize and KillAll are not gated on readiness.
//
// Thread-safety: safe for concurrent use by any number of goroutines. No
// method call blocks another caller's method call for longer than one
// command's apply(); there is no global lock to contend on.
type Manager struct {
	cmds chan command

	cfg    Config
	log    *zap.Logger
	back   backend.Backend
	handle backend.Handle

	initStatus InitStatus
	initErr    error

	qbufs     map[qbuftypes.QBufRef]*QBuf
	order     []qbuftypes.QBufRef // insertion order, spec.md §3 "insertion order preserved"
	totalSize int64

	maxQueryDataSize int64
}

// NewManager constructs a Manager and immediately starts its actor goroutine
// and its backend-initialization goroutine.
//
// Parameters:
//   - cfg: watermarks, timings, and the backend root path. Copied by value;
//     later mutation of the caller's Config has no effect.
//   - back: the Backend implementation to open at cfg.RootPath. Tests pass
//     an in-memory fake; production callers pass backend.NewBadgerBackend().
//   - log: structured logger for init/lifecycle events. May be nil, in
//     which case Manager logs nothing.
//
// Returns: a non-nil *Manager immediately. The manager is not yet usable —
// backend initialization runs asynchronously, and every qbuf command issued
// before it completes replies ErrNotReady (the max-query-data-size
// accessors and KillAll excepted). Poll any qbuf command for ErrNotReady to
// detect readiness.
//
// Thread-safety: the returned Manager is safe for immediate concurrent use
// by multiple goroutines, even while backend initialization is still in
// flight.
func NewManager(cfg Config, back backend.Backend, log *zap.Logger) *Manager {
	m := &Manager{
		cmds:             make(chan command, 64),
		cfg:              cfg,
		log:              log,
		back:             back,
		initStatus:       InitInProgress,
		qbufs:            make(map[qbuftypes.QBufRef]*QBuf),
		maxQueryDataSize: cfg.MaxQueryDataSize,
	}
	go m.run()
	go m.initBackend()
	return m
}

// initBackend runs the long "wipe and reopen the KV store" operation of
// spec.md §5 outside the actor, then posts a single completion command back
// onto the same channel — exactly the shape §5 requires ("sends a
// completion message that transitions the actor from init_in_progress to
// ready or init_failed").
func (m *Manager) initBackend() {
	err := os.RemoveAll(m.cfg.RootPath)
	if err == nil {
		err = os.MkdirAll(m.cfg.RootPath, 0o755)
	}
	var h backend.Handle
	if err == nil {
		h, err = m.back.Open(m.cfg.RootPath)
	}
	m.cmds <- initDoneCommand{handle: h, err: err}
}

// run is the actor loop: one goroutine, one command at a time, no locks.
func (m *Manager) run() {
	for cmd := range m.cmds {
		cmd.apply(m)
	}
}

// command is one message processed by the actor. Each concrete command
// knows how to apply itself to manager state and reply on its own channel.
type command interface {
	apply(m *Manager)
}

// send delivers a command and blocks until apply() has run against it,
// by constructing the command with a reply channel buffered to 1 so the
// actor never blocks sending its reply.
func send[R any](m *Manager, build func(reply chan R) command) R {
	reply := make(chan R, 1)
	m.cmds <- build(reply)
	return <-reply
}

// --- init completion -------------------------------------------------

type initDoneCommand struct {
	handle backend.Handle
	err    error
}

func (c initDoneCommand) apply(m *Manager) {
	if c.err != nil {
		m.initStatus = InitFailed
		m.initErr = c.err
		if m.log != nil {
			m.log.Error("qbuf backend init failed", zap.Error(c.err))
		}
		return
	}
	m.handle = c.handle
	m.initStatus = InitReady
	if m.log != nil {
		m.log.Info("qbuf backend ready", zap.String("root_path", m.cfg.RootPath))
	}
}

// notReady reports the manager's readiness as an error, or nil once ready.
func (m *Manager) notReady() error {
	switch m.initStatus {
	case InitInProgress:
		return ErrNotReady
	case InitFailed:
		return ErrInitFailed
	default:
		return nil
	}
}

// --- GetOrCreate -------------------------------------------------------

// GetOrCreate allocates a new qbuf to receive chunksNeed chunks of rows
// ordered per schema, implementing spec.md §4.3 get_or_create.
//
// Behavior: admits the request against the manager's soft watermark, then
// allocates a fresh QBufRef and starts the qbuf in StatusCollectingChunks.
// The qbuf is not servable until BatchPut has delivered chunksNeed chunks.
//
// Parameters:
//   - table: display-only source table name, carried into DisplayName for
//     logging; never interpreted or validated.
//   - schema: compiled SELECT/ORDER BY/DDL shape every row handed to
//     BatchPut must match in column count and type.
//   - chunksNeed: the number of BatchPut calls that complete the qbuf. Must
//     be the same number the caller's shard fan-out will actually deliver;
//     a qbuf that never receives chunksNeed chunks never leaves
//     collecting_chunks and is eventually reaped (spec.md §4.5).
//   - opts: per-qbuf overrides, currently just ExpireAfter.
//
// Returns: (Created, ref, nil) on success. On failure returns a zero
// CreateResult, a zero QBufRef, and one of ErrNotReady, ErrInitFailed, or
// ErrQuotaExceeded (total tracked size already above soft_watermark).
//
// Thread-safety: safe for concurrent use; GetOrCreate calls from different
// goroutines are simply serialized by the actor.
func (m *Manager) GetOrCreate(table string, schema qbuftypes.Schema, chunksNeed int, opts Options) (CreateResult, qbuftypes.QBufRef, error) {
	r := send(m, func(ch chan getOrCreateReply) command {
		return getOrCreateCommand{table: table, schema: schema, chunksNeed: chunksNeed, opts: opts, reply: ch}
	})
	return r.result, r.ref, r.err
}

// getOrCreateReply is named (rather than an inline anonymous struct) so the
// channel type matches exactly between GetOrCreate's send call and
// getOrCreateCommand's reply field.
type getOrCreateReply struct {
	result CreateResult
	ref    qbuftypes.QBufRef
	err    error
}

type getOrCreateCommand struct {
	table      string
	schema     qbuftypes.Schema
	chunksNeed int
	opts       Options
	reply      chan getOrCreateReply
}

func (c getOrCreateCommand) apply(m *Manager) {
	type reply = getOrCreateReply
	if err := m.notReady(); err != nil {
		c.reply <- reply{err: err}
		return
	}
	if m.totalSize > m.cfg.SoftWatermark {
		c.reply <- reply{err: ErrQuotaExceeded}
		return
	}

	ref := qbuftypes.QBufRef(uuid.New())
	expireAfter := c.opts.ExpireAfter
	if expireAfter <= 0 {
		expireAfter = m.cfg.DefaultExpire
	}
	q := newQBuf(ref, c.table, c.schema, c.chunksNeed, expireAfter, time.Now())
	m.qbufs[ref] = q
	m.order = append(m.order, ref)

	if m.log != nil {
		m.log.Info("qbuf created", zap.String("qbuf", q.DisplayName()), zap.Int("chunks_need", c.chunksNeed))
	}
	c.reply <- reply{result: Created, ref: ref}
}

// --- Delete --------------------------------------------------------------

// Delete removes a qbuf immediately, implementing spec.md §4.3 delete.
//
// Behavior: drops the qbuf from the manager's table and subtracts its
// tracked size from the aggregate total regardless of the qbuf's current
// status — collecting, serving, or expiring all delete the same way. Any
// data already written to the backend for this qbuf is left on disk until
// KillAll destroys the store; Delete does not remove it.
//
// Parameters:
//   - ref: the qbuf to remove, as returned by GetOrCreate.
//
// Returns: nil on success. ErrBadRef if ref names no qbuf known to this
// manager. ErrNotReady/ErrInitFailed if the manager itself is not ready.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) Delete(ref qbuftypes.QBufRef) error {
	return send(m, func(ch chan error) command {
		return deleteCommand{ref: ref, reply: ch}
	})
}

type deleteCommand struct {
	ref   qbuftypes.QBufRef
	reply chan error
}

func (c deleteCommand) apply(m *Manager) {
	if err := m.notReady(); err != nil {
		c.reply <- err
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- ErrBadRef
		return
	}
	delete(m.qbufs, c.ref)
	m.removeFromOrder(c.ref)
	m.totalSize -= q.SizeBytes
	c.reply <- nil
}

func (m *Manager) removeFromOrder(ref qbuftypes.QBufRef) {
	for i, r := range m.order {
		if r == ref {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// --- BatchPut --------------------------------------------------------------

// BatchPut delivers one chunk of rows to a qbuf, implementing spec.md
// §4.3/§4.4 batch_put.
//
// Behavior: admits the chunk against the manager's hard watermark, encodes
// every row under its composite sort key (spec.md §4.2), and either stages
// the chunk in memory or writes it straight to the shared backend depending
// on remaining in-memory headroom (spec.md §9's "sorted accumulator" /
// "once spilled, stay spilled" rules). Once the qbuf's ChunksGot reaches
// ChunksNeed, the qbuf transitions to StatusServingFetches and any pending
// ready notifier fires.
//
// Parameters:
//   - ref: the target qbuf, as returned by GetOrCreate. Must still be in
//     StatusCollectingChunks.
//   - rows: the chunk's rows, each matching the qbuf's schema in column
//     count and type. Rows within a chunk need not be pre-sorted; BatchPut
//     sorts them into the qbuf's total order as it ingests them.
//
// Returns: nil on success. ErrBadRef for an unknown ref, ErrAlreadyFinished
// if the qbuf is no longer collecting chunks, ErrQuotaExceeded if the chunk
// would push total tracked size over hard_watermark, ErrBackendPutFailed if
// a spilled write to the backend fails, or ErrNotReady/ErrInitFailed if the
// manager itself is not ready. On any error the qbuf's counters are left
// exactly as they were — a failed BatchPut is always safe to retry.
//
// Thread-safety: safe for concurrent use. Concurrent BatchPut calls against
// the same ref are serialized by the actor, so ChunksGot only ever advances
// by whole chunks.
func (m *Manager) BatchPut(ref qbuftypes.QBufRef, rows []qbuftypes.Row) error {
	return send(m, func(ch chan error) command {
		return batchPutCommand{ref: ref, rows: rows, reply: ch}
	})
}

type batchPutCommand struct {
	ref   qbuftypes.QBufRef
	rows  []qbuftypes.Row
	reply chan error
}

func (c batchPutCommand) apply(m *Manager) {
	if err := m.notReady(); err != nil {
		c.reply <- err
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- ErrBadRef
		return
	}
	if q.Status != StatusCollectingChunks {
		c.reply <- ErrAlreadyFinished
		return
	}

	encoded := make([]backend.KV, 0, len(c.rows))
	keyed := make([]keyedRow, 0, len(c.rows))
	var chunkBytes int64

	for i, row := range c.rows {
		sortKey := keycodec.EncodeSortKey(row.Values, q.Schema.OrderBy)
		key := keycodec.EncodeCompositeKey(c.ref, sortKey, uint64(q.ChunksGot), uint64(i))
		payload, err := rowCodec.Encode(row)
		if err != nil {
			c.reply <- fmt.Errorf("qbuf: encode row: %w", err)
			return
		}
		chunkBytes += int64(len(key) + len(payload))
		encoded = append(encoded, backend.KV{Key: key, Value: payload})
		keyed = append(keyed, keyedRow{Key: key, Row: row})
	}

	if m.totalSize+chunkBytes > m.cfg.HardWatermark {
		c.reply <- ErrQuotaExceeded
		return
	}

	if !q.hasSpilled && q.canAffordInmem(m.totalSize, chunkBytes, m.cfg.InmemMax) {
		q.stageInMemory(keyed)
	} else {
		putRows := make([]backend.KV, 0, len(q.staging)+len(encoded))
		// A qbuf spilling for the first time also writes the rows it had
		// staged in memory, so no earlier chunk is lost by the switch.
		for _, kr := range q.staging {
			payload, err := rowCodec.Encode(kr.Row)
			if err != nil {
				c.reply <- fmt.Errorf("qbuf: encode row: %w", err)
				return
			}
			putRows = append(putRows, backend.KV{Key: kr.Key, Value: payload})
		}
		putRows = append(putRows, encoded...)
		if err := m.back.Put(m.handle, c.ref, putRows); err != nil {
			if m.log != nil {
				m.log.Warn("qbuf backend put failed", zap.String("qbuf", q.DisplayName()), zap.Error(err))
			}
			c.reply <- ErrBackendPutFailed
			return
		}
		q.markSpilled(m.handle)
	}

	q.ChunksGot++
	q.TotalRecords += len(c.rows)
	q.SizeBytes += chunkBytes
	q.LastAccessed = time.Now()
	m.totalSize += chunkBytes

	if q.ChunksGot == q.ChunksNeed {
		q.finalizeStaging()
		q.Status = StatusServingFetches
		if q.readyNotifier != nil {
			notifier := q.readyNotifier
			q.readyNotifier = nil
			go notifier()
		}
	}

	c.reply <- nil
}

// --- SetReadyNotifier --------------------------------------------------

// SetReadyNotifier arranges for fn to run once a qbuf reaches
// StatusServingFetches, implementing spec.md §4.3 set_ready_notifier.
//
// Behavior: if the qbuf is already serving fetches, fn runs (in its own
// goroutine) before SetReadyNotifier returns its nil error. Otherwise fn is
// stored and runs exactly once, from the BatchPut call that completes the
// qbuf. A second SetReadyNotifier call on the same ref replaces any
// previously stored fn rather than queuing both.
//
// Parameters:
//   - ref: the qbuf to watch.
//   - fn: called with no arguments, on its own goroutine — never on the
//     actor goroutine, so fn may itself call back into this Manager.
//
// Returns: nil on success, ErrBadRef for an unknown ref, or
// ErrNotReady/ErrInitFailed if the manager itself is not ready.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) SetReadyNotifier(ref qbuftypes.QBufRef, fn func()) error {
	return send(m, func(ch chan error) command {
		return setReadyNotifierCommand{ref: ref, fn: fn, reply: ch}
	})
}

type setReadyNotifierCommand struct {
	ref   qbuftypes.QBufRef
	fn    func()
	reply chan error
}

func (c setReadyNotifierCommand) apply(m *Manager) {
	if err := m.notReady(); err != nil {
		c.reply <- err
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- ErrBadRef
		return
	}
	if q.Status == StatusServingFetches {
		go c.fn()
		c.reply <- nil
		return
	}
	q.readyNotifier = c.fn
	c.reply <- nil
}

// --- Fetch ---------------------------------------------------------------

// Fetch returns one page of a qbuf's rows in ORDER BY order, implementing
// spec.md §4.3 fetch.
//
// Behavior: while the qbuf is still StatusCollectingChunks, Fetch returns
// ErrNotReady — callers are expected to use SetReadyNotifier or retry.
// Once serving, Fetch reads from whichever store currently holds the
// qbuf's rows: the in-memory staging slice if the qbuf never spilled, or a
// bounded backend.Scan if it did. Fetching updates the qbuf's last-accessed
// time, which resets its idle-expiry countdown (spec.md §4.5).
//
// Parameters:
//   - ref: the qbuf to read from.
//   - offset: rows to skip, in sorted order, before the returned page
//     starts. 0 for the first page.
//   - limit: maximum rows to return; limit < 0 means unlimited (return
//     every row from offset to the end).
//
// Returns: a FetchResult with the schema's columns and the requested rows
// on success. ErrBadRef for an unknown ref, ErrNotReady if the qbuf is
// still collecting chunks or the manager itself is not ready, or a
// wrapped decode/scan error if the backend read fails.
//
// Performance: an in-memory fetch is O(limit) after an O(1) slice; a
// backend fetch is O(offset+limit) because badger's iterator must walk
// past skipped keys — callers paginating deep into a large spilled qbuf
// should expect cost proportional to offset, not just to the page size.
//
// Thread-safety: safe for concurrent use; concurrent Fetch calls against
// the same ref may interleave but each sees a consistent page.
func (m *Manager) Fetch(ref qbuftypes.QBufRef, offset, limit int) (FetchResult, error) {
	r := send(m, func(ch chan fetchReply) command {
		return fetchCommand{ref: ref, offset: offset, limit: limit, reply: ch}
	})
	return r.result, r.err
}

type fetchReply struct {
	result FetchResult
	err    error
}

type fetchCommand struct {
	ref    qbuftypes.QBufRef
	offset int
	limit  int
	reply  chan fetchReply
}

func (c fetchCommand) apply(m *Manager) {
	type reply = fetchReply
	if err := m.notReady(); err != nil {
		c.reply <- reply{err: err}
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- reply{err: ErrBadRef}
		return
	}
	if q.Status == StatusCollectingChunks {
		c.reply <- reply{err: ErrNotReady}
		return
	}

	var rows []qbuftypes.Row
	if !q.hasSpilled {
		rows = q.fetchInMemory(c.offset, c.limit)
	} else {
		scanned, err := m.back.Scan(m.handle, c.ref, c.offset, c.limit)
		if err != nil {
			c.reply <- reply{err: fmt.Errorf("qbuf: scan: %w", err)}
			return
		}
		rows = make([]qbuftypes.Row, len(scanned))
		for i, r := range scanned {
			row, err := rowCodec.Decode(r.Value)
			if err != nil {
				c.reply <- reply{err: fmt.Errorf("qbuf: decode row: %w", err)}
				return
			}
			rows[i] = row
		}
	}

	q.LastAccessed = time.Now()
	c.reply <- reply{result: FetchResult{Columns: q.Schema.Columns, Rows: rows}}
}

// --- expiry accessors ----------------------------------------------------

// GetExpiry returns the idle-expiry duration currently set on a qbuf,
// implementing spec.md §4.3 get_expiry.
//
// Parameters:
//   - ref: the qbuf to query.
//
// Returns: the qbuf's ExpireAfter and nil on success, or a zero duration
// and ErrBadRef/ErrNotReady/ErrInitFailed on failure.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) GetExpiry(ref qbuftypes.QBufRef) (time.Duration, error) {
	r := send(m, func(ch chan getExpiryReply) command {
		return getExpiryCommand{ref: ref, reply: ch}
	})
	return r.d, r.err
}

type getExpiryReply struct {
	d   time.Duration
	err error
}

type getExpiryCommand struct {
	ref   qbuftypes.QBufRef
	reply chan getExpiryReply
}

func (c getExpiryCommand) apply(m *Manager) {
	type reply = getExpiryReply
	if err := m.notReady(); err != nil {
		c.reply <- reply{err: err}
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- reply{err: ErrBadRef}
		return
	}
	c.reply <- reply{d: q.ExpireAfter}
}

// SetExpiry overrides the idle-expiry duration on an existing qbuf,
// implementing spec.md §4.3 set_expiry.
//
// Parameters:
//   - ref: the qbuf to update.
//   - d: the new idle-expiry duration, measured from last access (the last
//     Fetch or BatchPut), not from wall-clock creation time.
//
// Returns: nil on success, or ErrBadRef/ErrNotReady/ErrInitFailed on
// failure. The new duration takes effect on the next lifecycle tick; it
// does not retroactively expire a qbuf that is already past the old one.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) SetExpiry(ref qbuftypes.QBufRef, d time.Duration) error {
	return send(m, func(ch chan error) command {
		return setExpiryCommand{ref: ref, d: d, reply: ch}
	})
}

type setExpiryCommand struct {
	ref   qbuftypes.QBufRef
	d     time.Duration
	reply chan error
}

func (c setExpiryCommand) apply(m *Manager) {
	if err := m.notReady(); err != nil {
		c.reply <- err
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- ErrBadRef
		return
	}
	q.ExpireAfter = c.d
	c.reply <- nil
}

// --- global tunables -------------------------------------------------------

// GetMaxQueryDataSize returns the process-wide maximum query data size,
// implementing spec.md §4.3 get_max_query_data_size.
//
// Returns: the current limit in bytes, as last set by SetMaxQueryDataSize
// or the Config this Manager was constructed with. This accessor never
// fails — the manager's own readiness does not gate it.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) GetMaxQueryDataSize() int64 {
	return send(m, func(ch chan int64) command {
		return getMaxQueryDataSizeCommand{reply: ch}
	})
}

type getMaxQueryDataSizeCommand struct {
	reply chan int64
}

func (c getMaxQueryDataSizeCommand) apply(m *Manager) {
	c.reply <- m.maxQueryDataSize
}

// SetMaxQueryDataSize updates the process-wide maximum query data size,
// implementing spec.md §4.3 set_max_query_data_size.
//
// Parameters:
//   - v: the new limit in bytes. This setting is advisory bookkeeping for
//     callers (e.g. a SQL layer enforcing result-size limits before ever
//     calling GetOrCreate) — the manager itself does not compare v against
//     anything; it never fails and never rejects an existing qbuf.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) SetMaxQueryDataSize(v int64) {
	send(m, func(ch chan struct{}) command {
		return setMaxQueryDataSizeCommand{v: v, reply: ch}
	})
}

type setMaxQueryDataSizeCommand struct {
	v     int64
	reply chan struct{}
}

func (c setMaxQueryDataSizeCommand) apply(m *Manager) {
	m.maxQueryDataSize = c.v
	c.reply <- struct{}{}
}

// --- KillAll ---------------------------------------------------------------

// KillAll tears down every qbuf and the backend store, implementing
// spec.md §4.3/§4.6 kill_all.
//
// Behavior: best-effort. Closes and destroys the backend store, then
// unconditionally clears the manager's qbuf table and resets total tracked
// size to zero — even if closing or destroying the backend failed. A
// caller that calls KillAll and ignores the error still ends up with an
// empty, billing-zeroed manager; the error only reports that on-disk
// cleanup may be incomplete.
//
// Returns: nil if both Close and Destroy succeeded. Otherwise a
// *multierror.Error (via github.com/hashicorp/go-multierror) aggregating
// every failure encountered, rather than stopping at the first one — use
// errors.Is/As or inspect the aggregated Errors slice if the caller needs
// to distinguish close failures from destroy failures.
//
// Thread-safety: safe for concurrent use. A KillAll racing with an
// in-flight BatchPut or Fetch is simply serialized by the actor; the other
// call sees either the pre-teardown or post-teardown state, never a torn
// one.
func (m *Manager) KillAll() error {
	return send(m, func(ch chan error) command {
		return killAllCommand{reply: ch}
	})
}

type killAllCommand struct {
	reply chan error
}

func (c killAllCommand) apply(m *Manager) {
	var result *multierror.Error

	if m.handle != nil {
		if err := m.back.Close(m.handle); err != nil {
			result = multierror.Append(result, fmt.Errorf("close backend: %w", err))
		}
	}
	if err := m.back.Destroy(m.cfg.RootPath); err != nil {
		result = multierror.Append(result, fmt.Errorf("destroy backend: %w", err))
	}

	m.qbufs = make(map[qbuftypes.QBufRef]*QBuf)
	m.order = nil
	m.totalSize = 0
	m.handle = nil

	if m.log != nil {
		if result != nil {
			m.log.Warn("qbuf kill_all completed with errors", zap.Error(result))
		} else {
			m.log.Info("qbuf kill_all completed")
		}
	}

	c.reply <- result.ErrorOrNil()
}

// --- BackendExpiryRequest --------------------------------------------------

// BackendExpiryRequest is the handshake a caller uses to confirm that a
// qbuf's backend-held bucket may now be dropped, implementing spec.md
// §4.3/§4.5/§4.6 backend_expiry_request.
//
// Behavior: only a qbuf already in StatusExpiring can be acknowledged; the
// call transitions it to StatusExpired, after which the next lifecycle
// tick removes it from the manager's table entirely. This is delivered as
// an ordinary actor command per spec.md §5 ("the actor must not call back
// into the backend synchronously") — BackendExpiryRequest never itself
// touches the backend.
//
// Parameters:
//   - bucketTag: must equal AbufBucketTag; any other value is rejected
//     with ErrNotAQbuf without looking up ref at all.
//   - ref: the qbuf bucket being acknowledged.
//
// Returns: nil on success. ErrNotAQbuf for a wrong bucketTag, ErrBadRef if
// ref is unknown or not currently StatusExpiring, or
// ErrNotReady/ErrInitFailed if the manager itself is not ready.
//
// Thread-safety: safe for concurrent use.
func (m *Manager) BackendExpiryRequest(bucketTag string, ref qbuftypes.QBufRef) error {
	return send(m, func(ch chan error) command {
		return backendExpiryCommand{bucketTag: bucketTag, ref: ref, reply: ch}
	})
}

// AbufBucketTag is the fixed bucket-type literal of spec.md §6 that the
// backend expiry subsystem uses to identify qbuf buckets.
const AbufBucketTag = "$abuf"

type backendExpiryCommand struct {
	bucketTag string
	ref       qbuftypes.QBufRef
	reply     chan error
}

func (c backendExpiryCommand) apply(m *Manager) {
	if err := m.notReady(); err != nil {
		c.reply <- err
		return
	}
	if c.bucketTag != AbufBucketTag {
		c.reply <- ErrNotAQbuf
		return
	}
	q, ok := m.qbufs[c.ref]
	if !ok {
		c.reply <- ErrBadRef
		return
	}
	if q.Status != StatusExpiring {
		c.reply <- ErrBadRef
		return
	}
	q.Status = StatusExpired
	c.reply <- nil
}

// --- lifecycle tick ---------------------------------------------------

// tick implements spec.md §4.5's per-sweep step, run as an ordinary command
// so it is never reordered with other commands (§5 "Ticks are never
// reordered with commands").
type tickCommand struct {
	now  time.Time
	done chan struct{}
}

func (c tickCommand) apply(m *Manager) {
	if m.initStatus != InitReady {
		if c.done != nil {
			close(c.done)
		}
		return
	}

	for ref, q := range m.qbufs {
		switch {
		case q.Status == StatusExpired:
			delete(m.qbufs, ref)
			m.removeFromOrder(ref)
		case q.Status == StatusCollectingChunks && c.now.Sub(q.LastAccessed) > m.cfg.IncompleteRelease:
			q.Status = StatusExpiring
		case q.Status == StatusServingFetches && c.now.Sub(q.LastAccessed) > q.ExpireAfter:
			q.Status = StatusExpiring
		}
	}

	var total int64
	for _, q := range m.qbufs {
		total += q.SizeBytes
	}
	m.totalSize = total

	if c.done != nil {
		close(c.done)
	}
}
