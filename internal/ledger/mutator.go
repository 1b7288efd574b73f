// Package ledger keeps account balances in exact agreement with the
// transaction log. Every mutation runs as one atomic store transaction:
// no state is ever observable with the transaction record written but
// balances stale, or the reverse.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
)

// Mutator applies transaction mutations and their balance effects
// atomically against an injected store.
type Mutator struct {
	store service.Storage
}

// NewMutator creates a mutator backed by the given store.
func NewMutator(store service.Storage) *Mutator {
	return &Mutator{store: store}
}

// Create appends a transaction and applies its balance effect to the
// source account, and to the destination account for transfers. Returns
// the store-assigned transaction id.
//
// Aborts with no partial effect if any referenced account does not
// exist at commit time.
func (m *Mutator) Create(ctx context.Context, txn *model.Transaction) (string, error) {
	if err := txn.Validate(); err != nil {
		return "", err
	}

	err := m.store.Atomic(ctx, func(tx service.Tx) error {
		if err := tx.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		return applyDeltas(ctx, tx, effectOf(txn))
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	return txn.ID, nil
}

// Update replaces a transaction's fields and atomically rebalances every
// involved account: the stored transaction's effect is reversed and the
// new transaction's effect applied inside the same atomic block. When
// the update reassigns accounts, all four legs land together.
//
// The reversal is computed from the authoritative stored record, not
// from a caller-supplied snapshot, so a stale caller can never corrupt
// a balance.
func (m *Mutator) Update(ctx context.Context, id string, updated model.Transaction) error {
	updated.ID = id
	if updated.Status == "" {
		updated.Status = model.StatusCompleted
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	err := m.store.Atomic(ctx, func(tx service.Tx) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if updated.UserID == "" {
			updated.UserID = old.UserID
		}

		if err := tx.UpdateTransaction(ctx, &updated); err != nil {
			return err
		}

		deltas := mergeDeltas(inverseOf(old), effectOf(&updated))
		return applyDeltas(ctx, tx, deltas)
	})
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	return nil
}

// Delete reverses the stored transaction's balance effect and removes
// the record, atomically.
func (m *Mutator) Delete(ctx context.Context, id string) error {
	err := m.store.Atomic(ctx, func(tx service.Tx) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return applyDeltas(ctx, tx, inverseOf(old))
	})
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

// effectOf returns the balance delta each account receives when the
// transaction is applied: income +amount, expense -amount, transfer
// -amount on the source and +amount on the destination. All sign logic
// lives here and in inverseOf; nothing else touches balances.
func effectOf(txn *model.Transaction) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal, 2)
	switch txn.Type {
	case model.TypeIncome:
		deltas[txn.AccountID] = txn.Amount
	case model.TypeExpense:
		deltas[txn.AccountID] = txn.Amount.Neg()
	case model.TypeTransfer:
		deltas[txn.AccountID] = txn.Amount.Neg()
		deltas[txn.ToAccountID] = txn.Amount
	}
	return deltas
}

// inverseOf returns the deltas that exactly undo effectOf(txn).
func inverseOf(txn *model.Transaction) map[string]decimal.Decimal {
	deltas := effectOf(txn)
	for id, d := range deltas {
		deltas[id] = d.Neg()
	}
	return deltas
}

// mergeDeltas sums per-account deltas from multiple legs. An account
// touched by both the reversal and the reapplication gets one combined
// delta; a zero combined delta still forces the existence check in
// applyDeltas.
func mergeDeltas(maps ...map[string]decimal.Decimal) map[string]decimal.Decimal {
	merged := make(map[string]decimal.Decimal, 2)
	for _, m := range maps {
		for id, d := range m {
			merged[id] = merged[id].Add(d)
		}
	}
	return merged
}

// applyDeltas reads each involved account's committed balance and
// writes the adjusted value, in deterministic account order. A missing
// account aborts the whole atomic block.
func applyDeltas(ctx context.Context, tx service.Tx, deltas map[string]decimal.Decimal) error {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		account, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.SetAccountBalance(ctx, id, account.Balance.Add(deltas[id])); err != nil {
			return err
		}
	}
	return nil
}
