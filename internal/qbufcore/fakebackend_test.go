package qbufcore

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/dreamware/qbuf/internal/qbufcore/backend"
	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

// fakeBackend is an in-memory stand-in for backend.Backend, used so manager
// tests exercise the full admission/ingestion/fetch path without touching
// real badger I/O. It is intentionally the simplest thing that satisfies the
// interface: a map of bucket to sorted KV slice.
type fakeBackend struct {
	mu sync.Mutex

	opened    bool
	destroyed bool
	data      map[qbuftypes.QBufRef][]backend.KV

	failOpen    error
	failPut     error
	failScan    error
	putCalls    int
	destroyCall int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[qbuftypes.QBufRef][]backend.KV)}
}

func (b *fakeBackend) Open(path string) (backend.Handle, error) {
	if b.failOpen != nil {
		return nil, b.failOpen
	}
	b.mu.Lock()
	b.opened = true
	b.mu.Unlock()
	return "fake-handle", nil
}

func (b *fakeBackend) Close(h backend.Handle) error {
	return nil
}

func (b *fakeBackend) Destroy(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	b.destroyCall++
	b.data = make(map[qbuftypes.QBufRef][]backend.KV)
	return nil
}

func (b *fakeBackend) Put(h backend.Handle, bucket qbuftypes.QBufRef, rows []backend.KV) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putCalls++
	if b.failPut != nil {
		return b.failPut
	}
	b.data[bucket] = append(b.data[bucket], rows...)
	sort.Slice(b.data[bucket], func(i, j int) bool {
		return bytes.Compare(b.data[bucket][i].Key, b.data[bucket][j].Key) < 0
	})
	return nil
}

func (b *fakeBackend) Scan(h backend.Handle, bucket qbuftypes.QBufRef, offset, limit int) ([]backend.Row, error) {
	if b.failScan != nil {
		return nil, b.failScan
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.data[bucket]
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]backend.Row, end-offset)
	for i := range out {
		out[i] = backend.Row{Value: all[offset+i].Value}
	}
	return out, nil
}

var errFakeBackend = errors.New("fake backend failure")
