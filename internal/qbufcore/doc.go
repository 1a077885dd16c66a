// Package qbufcore implements the query-result buffering core: the per-query
// buffer (qbuf) that stages result chunks streamed back from shards, merges
// them into global ORDER BY order, and serves paged reads from the sorted
// result until it expires.
//
// # Overview
//
// A qbuf absorbs chunks of rows under a compiled ORDER BY clause. While
// chunks are still arriving it keeps them in a sorted in-memory staging
// list; once that list grows past a configured budget it spills to an
// on-disk ordered key-value store and stays spilled for the rest of its
// life. Once the last expected chunk lands, the qbuf serves offset/limit
// reads from whichever representation it ended up in. Idle or abandoned
// qbufs are torn down by a periodic lifecycle sweep.
//
// # Architecture
//
//	┌─────────────────────────────────────────────┐
//	│                 Manager                      │
//	│   (single-goroutine command actor)           │
//	├───────────────────────────────────────────────┤
//	│  command channel  →  qbuf table  →  replies   │
//	│  backend-init goroutine  (one-shot message)   │
//	│  lifecycle ticker        (periodic command)   │
//	└───────────────────────────────────────────────┘
//	          │                              │
//	          ▼                              ▼
//	┌──────────────────┐          ┌───────────────────────┐
//	│   QBuf entity     │          │   KV Backend Adapter   │
//	│ (in-mem staging   │──spill──▶│  (badger, ordered KV)  │
//	│  or backend ref)  │          └───────────────────────┘
//	└──────────────────┘
//
// # Concurrency
//
// All manager state (the qbuf table, aggregate size) is owned by a single
// goroutine that processes commands off a channel one at a time — there is
// no lock on the table itself. Backend initialization, which wipes and
// reopens the on-disk store, runs outside the actor and reports back as an
// ordinary command; backend expiry acknowledgements arrive as ordinary
// commands too and never call into the backend.
//
// See SPEC_FULL.md at the module root for the full specification this
// package implements.
package qbufcore
