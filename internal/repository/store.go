package repository

import (
	"context"
	"sync"

	sentinal_errors "sentinal-threads/pkg/errors"
	"sentinal-threads/pkg/logger"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store is the client-local persistent store. Write transactions are
// serialized: at most one is open at any time.
type Store struct {
	db  *pebble.DB
	mu  sync.Mutex
	log *logger.Logger
}

// Open opens (or creates) a pebble database at path.
func Open(path string, l *logger.Logger) (*Store, error) {
	return open(path, &pebble.Options{}, l)
}

// OpenInMemory opens a store backed by an in-memory filesystem.
func OpenInMemory(l *logger.Logger) (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()}, l)
}

func open(path string, opts *pebble.Options, l *logger.Logger) (*Store, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		l.Logger.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return nil, errors.Wrap(err, "open store")
	}
	l.Logger.Info("pebble_opened", zap.String("path", path))
	return &Store{db: db, log: l}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	s.log.Logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is open.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Write runs fn inside a write transaction. The transaction commits when fn
// returns nil; any error discards every write and every after-commit hook
// registered during fn. Hooks run after the commit, outside the write lock.
func (s *Store) Write(ctx context.Context, fn func(tx *Tx) error) error {
	hooks, err := s.write(ctx, fn)
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

func (s *Store) write(ctx context.Context, fn func(tx *Tx) error) ([]func(context.Context), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.Wrap(sentinal_errors.ErrTransactionAborted, "store closed")
	}

	batch := s.db.NewIndexedBatch()
	tx := newTx(batch, batch)
	defer func() {
		tx.done = true
		_ = batch.Close()
	}()

	if err := fn(tx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(sentinal_errors.ErrTransactionAborted, err.Error())
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		s.log.Ctx(ctx).Error("tx_commit_failed", zap.Error(err))
		return nil, errors.Wrapf(sentinal_errors.ErrTransactionAborted, "commit: %v", err)
	}
	return tx.hooks, nil
}

// Read runs fn against a consistent snapshot of committed state.
func (s *Store) Read(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	if s.db == nil {
		s.mu.Unlock()
		return errors.Wrap(sentinal_errors.ErrTransactionAborted, "store closed")
	}
	snap := s.db.NewSnapshot()
	s.mu.Unlock()

	tx := newTx(snap, nil)
	defer func() {
		tx.done = true
		_ = snap.Close()
	}()
	if err := ctx.Err(); err != nil {
		return errors.Wrap(sentinal_errors.ErrTransactionAborted, err.Error())
	}
	return fn(tx)
}
