// Package memory keeps documents, update requests and history in process memory.
// Transactions hold a single lock and restore a copy of the data on failure.
package memory

import (
	"context"
	"sync"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
)

type txKey struct{}

type storedRequest struct {
	seq int64
	req *entity.UpdateRequest
}

type data struct {
	documents map[document.Key][]byte
	requests  map[string]storedRequest
	history   []*entity.HistoryEntry
	seq       int64
}

func (d *data) clone() *data {
	c := &data{
		documents: make(map[document.Key][]byte, len(d.documents)),
		requests:  make(map[string]storedRequest, len(d.requests)),
		history:   make([]*entity.HistoryEntry, len(d.history)),
		seq:       d.seq,
	}
	for k, v := range d.documents {
		c.documents[k] = append([]byte(nil), v...)
	}
	for k, v := range d.requests {
		c.requests[k] = storedRequest{seq: v.seq, req: v.req.Clone()}
	}
	for i, h := range d.history {
		entry := *h
		c.history[i] = &entry
	}
	return c
}

// DB is the shared in-memory state and its transaction manager
type DB struct {
	mu   sync.Mutex
	data *data
}

// NewDB creates an empty in-memory database
func NewDB() *DB {
	return &DB{
		data: &data{
			documents: make(map[document.Key][]byte),
			requests:  make(map[string]storedRequest),
		},
	}
}

// WithTransaction implements port.TransactionManager. Transactions are serialized;
// an error or panic from fn restores the data as it was before fn ran.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	saved := db.data.clone()
	defer func() {
		if p := recover(); p != nil {
			db.data = saved
			panic(p)
		}
		if err != nil {
			db.data = saved
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// read runs fn under the lock unless ctx already holds it
func (db *DB) read(ctx context.Context, fn func(d *data) error) error {
	if inTx(ctx) {
		return fn(db.data)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.data)
}

// write is read for mutations. Outside a transaction the change is applied as a
// single-statement transaction.
func (db *DB) write(ctx context.Context, fn func(d *data) error) error {
	return db.WithTransaction(ctx, func(txCtx context.Context) error {
		return fn(db.data)
	})
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (d *data) nextSeq() int64 {
	d.seq++
	return d.seq
}

func keyOf(docType, id string) document.Key {
	return document.Key{Type: docType, ID: id}
}

// Verify interface compliance
var _ port.TransactionManager = (*DB)(nil)
