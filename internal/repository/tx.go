package repository

import (
	"context"
	"encoding/json"

	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// Tx is a transaction handle passed explicitly through every operation. A
// write Tx sees its own uncommitted writes.
type Tx struct {
	reader pebble.Reader
	batch  *pebble.Batch
	locals map[any]any
	hooks  []func(context.Context)
	done   bool
}

func newTx(reader pebble.Reader, batch *pebble.Batch) *Tx {
	return &Tx{reader: reader, batch: batch}
}

func (tx *Tx) Writable() bool {
	return tx.batch != nil
}

// AfterCommit registers fn to run once the transaction has committed. It is
// never called if the transaction is discarded.
func (tx *Tx) AfterCommit(fn func(ctx context.Context)) {
	if !tx.Writable() {
		return
	}
	tx.hooks = append(tx.hooks, fn)
}

// Local returns transaction scoped state stored under key.
func (tx *Tx) Local(key any) any {
	return tx.locals[key]
}

func (tx *Tx) SetLocal(key, value any) {
	if tx.locals == nil {
		tx.locals = make(map[any]any)
	}
	tx.locals[key] = value
}

func (tx *Tx) check(write bool) error {
	if tx == nil || tx.done {
		return errors.Wrap(sentinal_errors.ErrTransactionAborted, "transaction finished")
	}
	if write && !tx.Writable() {
		return errors.Wrap(sentinal_errors.ErrInvalidState, "read-only transaction")
	}
	return nil
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	if err := tx.check(false); err != nil {
		return nil, err
	}
	v, closer, err := tx.reader.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, sentinal_errors.ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, nil
}

func (tx *Tx) has(key []byte) (bool, error) {
	_, err := tx.get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinal_errors.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (tx *Tx) getJSON(key []byte, out any) error {
	raw, err := tx.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s", key)
	}
	return nil
}

func (tx *Tx) set(key, value []byte) error {
	if err := tx.check(true); err != nil {
		return err
	}
	return tx.batch.Set(key, value, nil)
}

func (tx *Tx) setJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return tx.set(key, raw)
}

func (tx *Tx) delete(key []byte) error {
	if err := tx.check(true); err != nil {
		return err
	}
	return tx.batch.Delete(key, nil)
}

// iter returns an iterator over [prefix, prefixEnd(prefix)).
func (tx *Tx) iter(prefix []byte) (*pebble.Iterator, error) {
	if err := tx.check(false); err != nil {
		return nil, err
	}
	return tx.reader.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
}
