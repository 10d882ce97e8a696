package repository

import (
	"context"
	"sort"
	"sync"

	"user-identity-service/internal/models"
)

// MemoryAccountStore — эталонная реализация AccountStore в памяти:
// счета по id плюс вторичные индексы (номер счёта → id, пользователь → id).
// Одна блокировка на всё хранилище; Atomically держит её эксклюзивно на весь
// переданный блок, поэтому чтение-изменение-запись не перемежаются.
type MemoryAccountStore struct {
	mu       *sync.RWMutex
	accounts map[string]models.Account
	byNumber map[string]string
	byUser   map[string]map[string]struct{}
	inTx     bool
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		mu:       &sync.RWMutex{},
		accounts: make(map[string]models.Account),
		byNumber: make(map[string]string),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func (s *MemoryAccountStore) Atomically(_ context.Context, fn func(AccountStore) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txStore := &MemoryAccountStore{
		mu:       s.mu,
		accounts: s.accounts,
		byNumber: s.byNumber,
		byUser:   s.byUser,
		inTx:     true,
	}
	return fn(txStore)
}

func (s *MemoryAccountStore) rLock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryAccountStore) wLock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	defer s.rLock()()

	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (s *MemoryAccountStore) FindByAccountNumber(_ context.Context, accountNumber string) (*models.Account, error) {
	defer s.rLock()()

	id, ok := s.byNumber[accountNumber]
	if !ok {
		return nil, ErrAccountNotFound
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *MemoryAccountStore) FindByUserID(_ context.Context, userID string) ([]models.Account, error) {
	defer s.rLock()()
	return s.userAccountsLocked(userID), nil
}

func (s *MemoryAccountStore) userAccountsLocked(userID string) []models.Account {
	var accounts []models.Account
	for id := range s.byUser[userID] {
		accounts = append(accounts, s.accounts[id])
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts
}

func (s *MemoryAccountStore) FindPrimaryByUserID(_ context.Context, userID string) (*models.Account, error) {
	defer s.rLock()()

	for id := range s.byUser[userID] {
		if account := s.accounts[id]; account.IsPrimary {
			return &account, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryAccountStore) filter(match func(models.Account) bool) []models.Account {
	var accounts []models.Account
	for _, account := range s.accounts {
		if match(account) {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts
}

func (s *MemoryAccountStore) FindByType(_ context.Context, accountType models.AccountType) ([]models.Account, error) {
	defer s.rLock()()
	return s.filter(func(a models.Account) bool { return a.AccountType == accountType }), nil
}

func (s *MemoryAccountStore) FindByStatus(_ context.Context, status models.AccountStatus) ([]models.Account, error) {
	defer s.rLock()()
	return s.filter(func(a models.Account) bool { return a.Status == status }), nil
}

func (s *MemoryAccountStore) FindByVerificationStatus(_ context.Context, vs models.VerificationStatus) ([]models.Account, error) {
	defer s.rLock()()
	return s.filter(func(a models.Account) bool { return a.VerificationStatus == vs }), nil
}

func (s *MemoryAccountStore) CountByUserID(_ context.Context, userID string) (int64, error) {
	defer s.rLock()()
	return int64(len(s.byUser[userID])), nil
}

func (s *MemoryAccountStore) Save(_ context.Context, account *models.Account) error {
	defer s.wLock()()

	if takenBy, ok := s.byNumber[account.AccountNumber]; ok && takenBy != account.ID {
		return ErrAccountNumberTaken
	}

	if prev, ok := s.accounts[account.ID]; ok && prev.AccountNumber != account.AccountNumber {
		delete(s.byNumber, prev.AccountNumber)
	}

	s.accounts[account.ID] = *account
	s.byNumber[account.AccountNumber] = account.ID

	if s.byUser[account.UserID] == nil {
		s.byUser[account.UserID] = make(map[string]struct{})
	}
	s.byUser[account.UserID][account.ID] = struct{}{}

	return nil
}

func (s *MemoryAccountStore) SaveAll(ctx context.Context, accounts []models.Account) error {
	defer s.wLock()()

	saver := s
	if !s.inTx {
		saver = &MemoryAccountStore{mu: s.mu, accounts: s.accounts, byNumber: s.byNumber, byUser: s.byUser, inTx: true}
	}
	for i := range accounts {
		if err := saver.Save(ctx, &accounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryAccountStore) DeleteByID(_ context.Context, id string) error {
	defer s.wLock()()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	delete(s.accounts, id)
	delete(s.byNumber, account.AccountNumber)
	if ids := s.byUser[account.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, account.UserID)
		}
	}

	return nil
}
