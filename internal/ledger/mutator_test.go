package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
	"github.com/okane-app/okane/internal/storage"
)

func newTestAccount(t *testing.T, store *storage.MemoryStore, name string, balance int64) string {
	t.Helper()
	id, err := store.CreateAccount(context.Background(), &model.Account{
		UserID:  "user1",
		Name:    name,
		Type:    model.AccountTypeBank,
		Balance: decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
	return id
}

func balanceOf(t *testing.T, store *storage.MemoryStore, id string) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func testDate(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestCreateAppliesBalanceEffects(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	accountID := newTestAccount(t, store, "Checking", 10000)

	// Expense of 3000 brings the balance to 7000.
	_, err := mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: accountID,
		Type:      model.TypeExpense,
		Amount:    decimal.NewFromInt(3000),
		Date:      testDate(5),
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(7000)))

	// Income of 5000 brings it to 12000.
	_, err = mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: accountID,
		Type:      model.TypeIncome,
		Amount:    decimal.NewFromInt(5000),
		Date:      testDate(6),
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(12000)))
}

func TestDeleteReversesEffect(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	accountID := newTestAccount(t, store, "Checking", 10000)

	id, err := mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: accountID,
		Type:      model.TypeExpense,
		Amount:    decimal.NewFromInt(3000),
		Date:      testDate(5),
	})
	require.NoError(t, err)
	require.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(7000)))

	require.NoError(t, mutator.Delete(ctx, id))
	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(10000)),
		"deleting a transaction must restore the prior balance")

	_, err = store.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, common.ErrTransactionNotFound)
}

func TestTransferLifecycle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	source := newTestAccount(t, store, "Source", 1000)
	dest := newTestAccount(t, store, "Dest", 500)

	id, err := mutator.Create(ctx, &model.Transaction{
		UserID:      "user1",
		AccountID:   source,
		ToAccountID: dest,
		Type:        model.TypeTransfer,
		Amount:      decimal.NewFromInt(300),
		Date:        testDate(10),
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, source).Equal(decimal.NewFromInt(700)))
	assert.True(t, balanceOf(t, store, dest).Equal(decimal.NewFromInt(800)))

	// Raising the amount to 500 rebalances both legs.
	stored, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)
	updated := *stored
	updated.Amount = decimal.NewFromInt(500)
	require.NoError(t, mutator.Update(ctx, id, updated))
	assert.True(t, balanceOf(t, store, source).Equal(decimal.NewFromInt(500)))
	assert.True(t, balanceOf(t, store, dest).Equal(decimal.NewFromInt(1000)))

	// Deleting restores both starting balances.
	require.NoError(t, mutator.Delete(ctx, id))
	assert.True(t, balanceOf(t, store, source).Equal(decimal.NewFromInt(1000)))
	assert.True(t, balanceOf(t, store, dest).Equal(decimal.NewFromInt(500)))
}

func TestTransferConservesTotal(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	source := newTestAccount(t, store, "Source", 12345)
	dest := newTestAccount(t, store, "Dest", 6789)
	before := balanceOf(t, store, source).Add(balanceOf(t, store, dest))

	_, err := mutator.Create(ctx, &model.Transaction{
		UserID:      "user1",
		AccountID:   source,
		ToAccountID: dest,
		Type:        model.TypeTransfer,
		Amount:      decimal.NewFromInt(4321),
		Date:        testDate(1),
	})
	require.NoError(t, err)

	after := balanceOf(t, store, source).Add(balanceOf(t, store, dest))
	assert.True(t, after.Equal(before), "transfer must not create or destroy money")
}

func TestUpdateMovesEffectBetweenAccounts(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	first := newTestAccount(t, store, "First", 1000)
	second := newTestAccount(t, store, "Second", 1000)

	id, err := mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: first,
		Type:      model.TypeExpense,
		Amount:    decimal.NewFromInt(200),
		Date:      testDate(3),
	})
	require.NoError(t, err)

	stored, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)
	updated := *stored
	updated.AccountID = second
	require.NoError(t, mutator.Update(ctx, id, updated))

	assert.True(t, balanceOf(t, store, first).Equal(decimal.NewFromInt(1000)),
		"old account must get the reversal")
	assert.True(t, balanceOf(t, store, second).Equal(decimal.NewFromInt(800)),
		"new account must get the effect")
}

func TestUpdateIgnoresStaleCallerAmount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	accountID := newTestAccount(t, store, "Checking", 1000)

	id, err := mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: accountID,
		Type:      model.TypeExpense,
		Amount:    decimal.NewFromInt(100),
		Date:      testDate(2),
	})
	require.NoError(t, err)

	// A first edit lands; a second edit based on the original snapshot
	// must still reverse the stored amount, not the snapshot's.
	stored, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)

	firstEdit := *stored
	firstEdit.Amount = decimal.NewFromInt(400)
	require.NoError(t, mutator.Update(ctx, id, firstEdit))
	require.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(600)))

	staleEdit := *stored
	staleEdit.Amount = decimal.NewFromInt(250)
	require.NoError(t, mutator.Update(ctx, id, staleEdit))
	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(750)))
}

func TestCreateRejectsInvalidTransactions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	accountID := newTestAccount(t, store, "Checking", 1000)

	_, err := mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: accountID,
		Type:      model.TypeTransfer,
		Amount:    decimal.NewFromInt(100),
		Date:      testDate(1),
	})
	assert.ErrorIs(t, err, model.ErrInvalidTransfer)

	_, err = mutator.Create(ctx, &model.Transaction{
		UserID:    "user1",
		AccountID: accountID,
		Type:      model.TypeExpense,
		Amount:    decimal.NewFromInt(-5),
		Date:      testDate(1),
	})
	assert.ErrorIs(t, err, model.ErrNegativeAmount)

	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(1000)),
		"rejected transactions must not touch balances")
}

func TestMutationsAbortOnMissingAccount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	source := newTestAccount(t, store, "Source", 1000)

	_, err := mutator.Create(ctx, &model.Transaction{
		UserID:      "user1",
		AccountID:   source,
		ToAccountID: "no-such-account",
		Type:        model.TypeTransfer,
		Amount:      decimal.NewFromInt(100),
		Date:        testDate(1),
	})
	require.ErrorIs(t, err, common.ErrAccountNotFound)

	// The whole block rolled back: no transaction record, no balance change.
	txns, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: "user1"})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.True(t, balanceOf(t, store, source).Equal(decimal.NewFromInt(1000)))
}

func TestDeleteMissingTransaction(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	err := mutator.Delete(ctx, "no-such-id")
	assert.ErrorIs(t, err, common.ErrTransactionNotFound)
}

func TestConflictedCreateSucceedsOnRetry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	accountID := newTestAccount(t, store, "Checking", 1000)

	// First two commits collide; the whole operation re-runs from
	// scratch each time and the third lands exactly once.
	conflicts := 2
	store.ConflictHook = func() error {
		if conflicts > 0 {
			conflicts--
			return common.ErrConcurrencyConflict
		}
		return nil
	}

	err := common.WithRetry(ctx, func() error {
		_, createErr := mutator.Create(ctx, &model.Transaction{
			UserID:    "user1",
			AccountID: accountID,
			Type:      model.TypeExpense,
			Amount:    decimal.NewFromInt(100),
			Date:      testDate(1),
		})
		return createErr
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond})
	require.NoError(t, err)

	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(900)),
		"the effect must be applied exactly once despite retries")
	txns, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: "user1"})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestPersistentConflictExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mutator := NewMutator(store)

	accountID := newTestAccount(t, store, "Checking", 1000)
	store.ConflictHook = func() error { return common.ErrConcurrencyConflict }

	err := common.WithRetry(ctx, func() error {
		_, createErr := mutator.Create(ctx, &model.Transaction{
			UserID:    "user1",
			AccountID: accountID,
			Type:      model.TypeExpense,
			Amount:    decimal.NewFromInt(100),
			Date:      testDate(1),
		})
		return createErr
	}, service.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond})
	require.ErrorIs(t, err, common.ErrMaxRetries)

	assert.True(t, balanceOf(t, store, accountID).Equal(decimal.NewFromInt(1000)),
		"failed attempts must leave no partial effects")
}

func TestEffectOfSigns(t *testing.T) {
	amount := decimal.NewFromInt(100)

	income := effectOf(&model.Transaction{Type: model.TypeIncome, AccountID: "a", Amount: amount})
	assert.True(t, income["a"].Equal(amount))

	expense := effectOf(&model.Transaction{Type: model.TypeExpense, AccountID: "a", Amount: amount})
	assert.True(t, expense["a"].Equal(amount.Neg()))

	transfer := effectOf(&model.Transaction{
		Type: model.TypeTransfer, AccountID: "a", ToAccountID: "b", Amount: amount,
	})
	assert.True(t, transfer["a"].Equal(amount.Neg()))
	assert.True(t, transfer["b"].Equal(amount))
}

func TestMergeDeltasCombinesLegs(t *testing.T) {
	old := &model.Transaction{Type: model.TypeExpense, AccountID: "a", Amount: decimal.NewFromInt(100)}
	updated := &model.Transaction{Type: model.TypeExpense, AccountID: "a", Amount: decimal.NewFromInt(250)}

	merged := mergeDeltas(inverseOf(old), effectOf(updated))
	require.Len(t, merged, 1)
	assert.True(t, merged["a"].Equal(decimal.NewFromInt(-150)))
}
