package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
)

// MemoryStore is an in-memory implementation of service.Storage with the
// same atomic-transaction contract as the SQLite store. A store-wide
// mutex serializes every operation, so atomic blocks are trivially
// isolated. Intended for tests and as the reference implementation of
// the contract.
type MemoryStore struct {
	accounts     map[string]model.Account
	transactions map[string]model.Transaction
	categories   map[string]model.Category
	budgets      map[string]model.Budget
	reports      map[string]model.Report
	txnSeq       map[string]int64

	// ConflictHook, when set, runs just before an Atomic block commits.
	// Returning an error aborts the block with that error; tests use it
	// to simulate optimistic-concurrency conflicts.
	ConflictHook func() error

	nextSeq int64
	mu      sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]model.Account),
		transactions: make(map[string]model.Transaction),
		categories:   make(map[string]model.Category),
		budgets:      make(map[string]model.Budget),
		reports:      make(map[string]model.Report),
		txnSeq:       make(map[string]int64),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Atomic runs fn against the live maps under the store lock. On any
// error the pre-block state is restored, so partial effects are never
// observable.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx service.Tx) error) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapAccounts := cloneMap(s.accounts)
	snapTransactions := cloneMap(s.transactions)
	snapSeq := cloneMap(s.txnSeq)

	restore := func() {
		s.accounts = snapAccounts
		s.transactions = snapTransactions
		s.txnSeq = snapSeq
	}

	if err := fn(&memTx{store: s}); err != nil {
		restore()
		return err
	}

	if s.ConflictHook != nil {
		if err := s.ConflictHook(); err != nil {
			restore()
			return err
		}
	}
	return nil
}

// memTx operates directly on the store maps; Atomic holds the lock and
// owns rollback.
type memTx struct {
	store *MemoryStore
}

func (t *memTx) GetAccount(_ context.Context, id string) (*model.Account, error) {
	account, ok := t.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	return &account, nil
}

func (t *memTx) SetAccountBalance(_ context.Context, id string, balance decimal.Decimal) error {
	account, ok := t.store.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	account.Balance = balance
	account.UpdatedAt = time.Now()
	t.store.accounts[id] = account
	return nil
}

func (t *memTx) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	txn, ok := t.store.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrTransactionNotFound, id)
	}
	return &txn, nil
}

func (t *memTx) SaveTransaction(_ context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Status == "" {
		txn.Status = model.StatusCompleted
	}
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	t.store.nextSeq++
	t.store.txnSeq[txn.ID] = t.store.nextSeq
	t.store.transactions[txn.ID] = *txn
	return nil
}

func (t *memTx) UpdateTransaction(_ context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	existing, ok := t.store.transactions[txn.ID]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrTransactionNotFound, txn.ID)
	}
	txn.CreatedAt = existing.CreatedAt
	txn.UpdatedAt = time.Now()
	t.store.transactions[txn.ID] = *txn
	return nil
}

func (t *memTx) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := t.store.transactions[id]; !ok {
		return fmt.Errorf("%w: %s", common.ErrTransactionNotFound, id)
	}
	delete(t.store.transactions, id)
	delete(t.store.txnSeq, id)
	return nil
}

// CreateAccount inserts a new account and returns its store-assigned id.
func (s *MemoryStore) CreateAccount(ctx context.Context, account *model.Account) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateAccount(account); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return account.ID, nil
}

// GetAccount retrieves an account by id.
func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	return &account, nil
}

// ListAccounts returns the user's accounts sorted by name.
func (s *MemoryStore) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var accounts []model.Account
	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// UpdateAccount updates an account's descriptive fields.
func (s *MemoryStore) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, account.ID)
	}
	existing.Name = account.Name
	existing.Type = account.Type
	existing.Currency = account.Currency
	existing.UpdatedAt = time.Now()
	s.accounts[account.ID] = existing
	return nil
}

// SetAccountArchived flips the archived flag.
func (s *MemoryStore) SetAccountArchived(ctx context.Context, id string, archived bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	account.Archived = archived
	account.UpdatedAt = time.Now()
	s.accounts[id] = account
	return nil
}

// DeleteAccount removes an account.
func (s *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	delete(s.accounts, id)
	return nil
}

// GetTransaction retrieves a transaction by id.
func (s *MemoryStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrTransactionNotFound, id)
	}
	return &txn, nil
}

// GetTransactionByExternalID looks up an imported transaction.
func (s *MemoryStore) GetTransactionByExternalID(ctx context.Context, externalID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range s.transactions {
		if txn.ExternalID != "" && txn.ExternalID == externalID {
			return &txn, nil
		}
	}
	return nil, fmt.Errorf("%w: external id %s", common.ErrTransactionNotFound, externalID)
}

// ListTransactions returns matching transactions ordered by date
// ascending, insertion order preserved among equal dates.
func (s *MemoryStore) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var txns []model.Transaction
	for _, txn := range s.transactions {
		if matchesFilter(&txn, filter) {
			txns = append(txns, txn)
		}
	}

	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return s.txnSeq[txns[i].ID] < s.txnSeq[txns[j].ID]
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(txns) {
			return nil, nil
		}
		txns = txns[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(txns) {
		txns = txns[:filter.Limit]
	}
	return txns, nil
}

// CreateCategory inserts a category.
func (s *MemoryStore) CreateCategory(ctx context.Context, category *model.Category) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(category.Name, "category.Name"); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	s.categories[category.ID] = *category
	return category.ID, nil
}

// GetCategory retrieves a category by id.
func (s *MemoryStore) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrCategoryNotFound, id)
	}
	return &category, nil
}

// ListCategories returns the user's categories sorted by name.
func (s *MemoryStore) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var categories []model.Category
	for _, category := range s.categories {
		if category.UserID == userID {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// DeleteCategory removes a category.
func (s *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("%w: %s", common.ErrCategoryNotFound, id)
	}
	delete(s.categories, id)
	return nil
}

// SeedDefaultCategories creates the standard category set when the user
// has none.
func (s *MemoryStore) SeedDefaultCategories(ctx context.Context, userID string) (int, error) {
	existing, err := s.ListCategories(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, category := range model.DefaultCategories() {
		category.UserID = userID
		if _, err := s.CreateCategory(ctx, &category); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// CreateBudget inserts a budget.
func (s *MemoryStore) CreateBudget(ctx context.Context, budget *model.Budget) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateBudget(budget); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}
	now := time.Now()
	budget.CreatedAt = now
	budget.UpdatedAt = now
	s.budgets[budget.ID] = *budget
	return budget.ID, nil
}

// GetBudget retrieves a budget by id.
func (s *MemoryStore) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	budget, ok := s.budgets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrBudgetNotFound, id)
	}
	return &budget, nil
}

// ListBudgets returns the user's budgets sorted by name.
func (s *MemoryStore) ListBudgets(ctx context.Context, userID string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var budgets []model.Budget
	for _, budget := range s.budgets {
		if budget.UserID == userID {
			budgets = append(budgets, budget)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Name < budgets[j].Name })
	return budgets, nil
}

// UpdateBudget rewrites a budget.
func (s *MemoryStore) UpdateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.budgets[budget.ID]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrBudgetNotFound, budget.ID)
	}
	budget.CreatedAt = existing.CreatedAt
	budget.UpdatedAt = time.Now()
	s.budgets[budget.ID] = *budget
	return nil
}

// DeleteBudget removes a budget.
func (s *MemoryStore) DeleteBudget(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return fmt.Errorf("%w: %s", common.ErrBudgetNotFound, id)
	}
	delete(s.budgets, id)
	return nil
}

// SaveReport inserts a saved report definition.
func (s *MemoryStore) SaveReport(ctx context.Context, report *model.Report) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateReport(report); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	s.reports[report.ID] = *report
	return report.ID, nil
}

// GetReport retrieves a saved report definition.
func (s *MemoryStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrReportNotFound, id)
	}
	return &report, nil
}

// ListReports returns the user's saved report definitions sorted by name.
func (s *MemoryStore) ListReports(ctx context.Context, userID string) ([]model.Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var reports []model.Report
	for _, report := range s.reports {
		if report.UserID == userID {
			reports = append(reports, report)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports, nil
}

// DeleteReport removes a saved report definition.
func (s *MemoryStore) DeleteReport(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("%w: %s", common.ErrReportNotFound, id)
	}
	delete(s.reports, id)
	return nil
}

func matchesFilter(txn *model.Transaction, filter service.TransactionFilter) bool {
	if filter.UserID != "" && txn.UserID != filter.UserID {
		return false
	}
	if filter.Start != nil && txn.Date.Before(*filter.Start) {
		return false
	}
	if filter.End != nil && txn.Date.After(*filter.End) {
		return false
	}
	if len(filter.AccountIDs) > 0 && !containsString(filter.AccountIDs, txn.AccountID) {
		return false
	}
	if len(filter.CategoryIDs) > 0 && !containsString(filter.CategoryIDs, txn.CategoryID) {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if txn.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Tags) > 0 && !hasAnyTag(txn.Tags, filter.Tags) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
