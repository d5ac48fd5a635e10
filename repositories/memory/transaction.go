package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/upb/rbac-control-plane/repositories"
	"go.uber.org/zap"
)

type txContextKey struct{}

// ErrTxDone is returned when committing or rolling back a finished transaction
var ErrTxDone = errors.New("transaction has already been committed or rolled back")

// TransactionManager implements repositories.TransactionManager by
// snapshotting the store and restoring it on rollback
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager over a store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// Begin locks the store until the transaction finishes
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tm.store.mu.Lock()
	tx := &Transaction{
		store:    tm.store,
		snapshot: tm.store.data.clone(),
		active:   true,
	}
	tx.ctx = context.WithValue(ctx, txContextKey{}, tx)
	return tx, nil
}

// InTransaction executes fn within a transaction. A context that already
// carries a transaction of the same store joins it.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if outer, ok := ctx.Value(txContextKey{}).(*Transaction); ok && outer.store == tm.store && outer.open() {
		return fn(ctx, outer)
	}

	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.store.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// Transaction implements repositories.Transaction for the memory store
type Transaction struct {
	store    *Store
	snapshot *state
	ctx      context.Context

	mu     sync.Mutex
	active bool
}

func (t *Transaction) open() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Transaction) finish(restore bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return ErrTxDone
	}
	if restore {
		t.store.data = t.snapshot
	}
	t.active = false
	t.snapshot = nil
	t.store.mu.Unlock()
	return nil
}

// Commit keeps the changes made inside the transaction
func (t *Transaction) Commit() error {
	return t.finish(false)
}

// Rollback restores the snapshot taken at Begin. Rolling back a finished
// transaction is a no-op.
func (t *Transaction) Rollback() error {
	if err := t.finish(true); err != nil && !errors.Is(err, ErrTxDone) {
		return err
	}
	return nil
}

// Context returns the transaction context
func (t *Transaction) Context() context.Context {
	return t.ctx
}
