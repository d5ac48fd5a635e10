package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/rbac-control-plane/repositories"
)

type txKey struct{}

// MockTransactionManager runs fn with a context tagged as transactional and
// records the outcome
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	tx := &MockTransaction{}
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	if err := fn(tx.ctx, tx); err != nil {
		tx.rolledback = true
		return err
	}
	tx.committed = true
	return nil
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	ctx        context.Context
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error            { m.committed = true; return nil }
func (m *MockTransaction) Rollback() error          { m.rolledback = true; return nil }
func (m *MockTransaction) Context() context.Context { return m.ctx }

func TestWithTransaction_Success(t *testing.T) {
	ctx := context.Background()
	mgr := new(MockTransactionManager)
	mgr.On("InTransaction", ctx).Return(nil)

	var sawTx bool
	err := WithTransaction(ctx, mgr, func(ctx context.Context) error {
		_, sawTx = ctx.Value(txKey{}).(*MockTransaction)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, sawTx)
	mgr.AssertExpectations(t)
}

func TestWithTransaction_ErrorInFunction(t *testing.T) {
	ctx := context.Background()
	mgr := new(MockTransactionManager)
	mgr.On("InTransaction", ctx).Return(nil)
	expectedErr := errors.New("operation failed")

	err := WithTransaction(ctx, mgr, func(ctx context.Context) error {
		return expectedErr
	})

	assert.Equal(t, expectedErr, err)
}

func TestWithTransaction_BeginError(t *testing.T) {
	ctx := context.Background()
	mgr := new(MockTransactionManager)
	mgr.On("InTransaction", ctx).Return(errors.New("failed to begin transaction"))

	called := false
	err := WithTransaction(ctx, mgr, func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)
}

func TestWithTransactionResult(t *testing.T) {
	ctx := context.Background()

	t.Run("returns value on success", func(t *testing.T) {
		mgr := new(MockTransactionManager)
		mgr.On("InTransaction", ctx).Return(nil)

		got, err := WithTransactionResult(ctx, mgr, func(ctx context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("returns zero value on error", func(t *testing.T) {
		mgr := new(MockTransactionManager)
		mgr.On("InTransaction", ctx).Return(nil)

		got, err := WithTransactionResult(ctx, mgr, func(ctx context.Context) (string, error) {
			return "partial", errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, "", got)
	})
}
