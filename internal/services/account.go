package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"user-identity-service/internal/cache"
	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/utils"
	"user-identity-service/internal/worker"
)

var (
	ErrInvalidAmount       = errors.New("сумма должна быть больше 0")
	ErrInsufficientBalance = errors.New("недостаточно средств")
	ErrNotAccountOwner     = errors.New("счёт не принадлежит указанному пользователю")
	ErrSelfTransfer        = errors.New("нельзя переводить на тот же счёт")
)

// количество попыток генерации номера счёта при коллизии
const maxNumberAttempts = 5

// UserDirectory разрешает идентификатор пользователя в запись пользователя.
// Сервис счетов использует его только для проверки существования владельца.
type UserDirectory interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

type AccountService struct {
	store      repository.AccountStore
	users      UserDirectory
	cache      *cache.RedisCache
	workerPool *worker.WorkerPool
}

func NewAccountService(store repository.AccountStore, users UserDirectory) *AccountService {
	return &AccountService{
		store: store,
		users: users,
	}
}

func NewAccountServiceWithCache(store repository.AccountStore, users UserDirectory, cache *cache.RedisCache) *AccountService {
	return &AccountService{
		store: store,
		users: users,
		cache: cache,
	}
}

// SetWorkerPool подключает пул воркеров для асинхронной инвалидации кеша.
func (s *AccountService) SetWorkerPool(pool *worker.WorkerPool) {
	s.workerPool = pool
	utils.LogSuccess("AccountService", "Worker Pool подключен к сервису счетов")
}

// CreateAccount создаёт счёт для пользователя. Если номер не задан, он
// генерируется по типу счёта; коллизия сгенерированного номера приводит к
// повторной генерации (ограниченное число попыток), коллизия явно заданного
// номера возвращается вызывающему как конфликт. Первый счёт пользователя,
// как и счёт с запрошенным флагом is_primary, становится основным — внутри
// той же транзакции, что и вставка.
func (s *AccountService) CreateAccount(ctx context.Context, userID string, req models.CreateAccountRequest) (*models.Account, error) {
	utils.LogInfo("AccountService", "Создание счёта типа %s для пользователя %s", req.AccountType, userID)

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		utils.LogError("AccountService", fmt.Sprintf("Владелец %s не найден", userID), err)
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := req.AccountNumber
		generated := false
		if number == "" {
			number = utils.GenerateAccountNumber(string(req.AccountType))
			generated = true
		}

		account := &models.Account{
			ID:                 uuid.New().String(),
			UserID:             userID,
			AccountNumber:      number,
			AccountType:        req.AccountType,
			Status:             models.AccountStatusActive,
			Balance:            decimal.Zero,
			Currency:           currency,
			VerificationStatus: models.VerificationPending,
			CreatedAt:          time.Now().UTC(),
		}

		err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
			if _, err := tx.FindByAccountNumber(ctx, number); err == nil {
				return repository.ErrAccountNumberTaken
			} else if !errors.Is(err, repository.ErrAccountNotFound) {
				return err
			}

			count, err := tx.CountByUserID(ctx, userID)
			if err != nil {
				return err
			}

			if req.IsPrimary || count == 0 {
				if err := unsetPrimaryAccounts(ctx, tx, userID); err != nil {
					return err
				}
				account.IsPrimary = true
			}

			return tx.Save(ctx, account)
		})

		if errors.Is(err, repository.ErrAccountNumberTaken) && generated {
			utils.LogWarning("AccountService", "Коллизия номера счёта %s, попытка %d/%d", number, attempt+1, maxNumberAttempts)
			continue
		}
		if err != nil {
			utils.LogError("AccountService", "Ошибка создания счёта", err)
			return nil, err
		}

		s.invalidateUserCache(ctx, userID)
		utils.LogSuccess("AccountService", "Счёт %s (%s) создан для пользователя %s (основной: %v)",
			account.ID, account.AccountNumber, userID, account.IsPrimary)
		return account, nil
	}

	return nil, fmt.Errorf("не удалось подобрать уникальный номер счёта: %w", repository.ErrAccountNumberTaken)
}

// unsetPrimaryAccounts снимает флаг основного счёта со всех счетов
// пользователя. Вызывается только внутри Atomically.
func unsetPrimaryAccounts(ctx context.Context, tx repository.AccountStore, userID string) error {
	accounts, err := tx.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for i := range accounts {
		accounts[i].IsPrimary = false
	}
	return tx.SaveAll(ctx, accounts)
}

// SetAsPrimaryAccount делает счёт основным для пользователя. Снятие флага со
// всех счетов и установка на целевом выполняются одной транзакцией: после
// завершения ровно один счёт пользователя основной.
func (s *AccountService) SetAsPrimaryAccount(ctx context.Context, accountID, userID string) (*models.Account, error) {
	utils.LogInfo("AccountService", "Счёт %s назначается основным для пользователя %s", accountID, userID)

	var account *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		var err error
		account, err = tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if account.UserID != userID {
			return ErrNotAccountOwner
		}

		if err := unsetPrimaryAccounts(ctx, tx, userID); err != nil {
			return err
		}

		account.IsPrimary = true
		return tx.Save(ctx, account)
	})
	if err != nil {
		utils.LogError("AccountService", fmt.Sprintf("Не удалось назначить счёт %s основным", accountID), err)
		return nil, err
	}

	s.invalidateUserCache(ctx, userID)
	utils.LogSuccess("AccountService", "Счёт %s теперь основной для пользователя %s", accountID, userID)
	return account, nil
}

func (s *AccountService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error) {
	utils.LogInfo("AccountService", "Пополнение счёта %s на %s", accountID, amount.StringFixed(2))

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var account *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		var err error
		account, err = tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		account.Balance = account.Balance.Add(amount)
		account.LastActivityAt = &now
		return tx.Save(ctx, account)
	})
	if err != nil {
		utils.LogError("AccountService", fmt.Sprintf("Ошибка пополнения счёта %s", accountID), err)
		return nil, err
	}

	s.invalidateAccountCacheAsync(ctx, "deposit", account)
	utils.LogSuccess("AccountService", "Счёт %s пополнен, баланс: %s", accountID, account.Balance.StringFixed(2))
	return account, nil
}

func (s *AccountService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error) {
	utils.LogInfo("AccountService", "Списание %s со счёта %s", amount.StringFixed(2), accountID)

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var account *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		var err error
		account, err = tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		now := time.Now().UTC()
		account.Balance = account.Balance.Sub(amount)
		account.LastActivityAt = &now
		return tx.Save(ctx, account)
	})
	if err != nil {
		utils.LogError("AccountService", fmt.Sprintf("Ошибка списания со счёта %s", accountID), err)
		return nil, err
	}

	s.invalidateAccountCacheAsync(ctx, "withdraw", account)
	utils.LogSuccess("AccountService", "Со счёта %s списано %s, баланс: %s", accountID, amount.StringFixed(2), account.Balance.StringFixed(2))
	return account, nil
}

// Transfer атомарно списывает сумму со счёта-отправителя и зачисляет на
// счёт-получатель. Частичное применение (списание без зачисления) снаружи
// транзакции не наблюдаемо. Возвращает счёт-получатель.
func (s *AccountService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) (*models.Account, error) {
	utils.LogInfo("AccountService", "Перевод %s: %s → %s", amount.StringFixed(2), fromAccountID, toAccountID)

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if fromAccountID == toAccountID {
		return nil, ErrSelfTransfer
	}

	var toAccount *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		fromAccount, err := tx.FindByID(ctx, fromAccountID)
		if err != nil {
			return err
		}
		toAccount, err = tx.FindByID(ctx, toAccountID)
		if err != nil {
			return err
		}

		if fromAccount.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		now := time.Now().UTC()
		fromAccount.Balance = fromAccount.Balance.Sub(amount)
		toAccount.Balance = toAccount.Balance.Add(amount)
		fromAccount.LastActivityAt = &now
		toAccount.LastActivityAt = &now

		return tx.SaveAll(ctx, []models.Account{*fromAccount, *toAccount})
	})
	if err != nil {
		utils.LogError("AccountService", "Ошибка выполнения перевода", err)
		return nil, err
	}

	s.invalidateAccountCacheAsync(ctx, "transfer", toAccount)
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.AccountKey(fromAccountID))
	}
	utils.LogSuccess("AccountService", "Перевод выполнен: %s → %s (%s)", fromAccountID, toAccountID, amount.StringFixed(2))
	return toAccount, nil
}

func (s *AccountService) ChangeStatus(ctx context.Context, accountID string, status models.AccountStatus) (*models.Account, error) {
	utils.LogInfo("AccountService", "Изменение статуса счёта %s на %s", accountID, status)

	var account *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		var err error
		account, err = tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		account.Status = status
		return tx.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUserCache(ctx, account.UserID)
	return account, nil
}

func (s *AccountService) ChangeVerificationStatus(ctx context.Context, accountID string, vs models.VerificationStatus) (*models.Account, error) {
	utils.LogInfo("AccountService", "Изменение статуса верификации счёта %s на %s", accountID, vs)

	var account *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		var err error
		account, err = tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		account.VerificationStatus = vs
		return tx.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUserCache(ctx, account.UserID)
	return account, nil
}

// UpdateAccount перезаписывает изменяемые поля счёта напрямую, включая флаг
// is_primary как есть: процедура поддержания единственного основного счёта
// здесь не вызывается. Чтение и запись выполняются одной транзакцией, чтобы
// не затереть параллельное изменение баланса.
func (s *AccountService) UpdateAccount(ctx context.Context, accountID string, req models.UpdateAccountRequest) (*models.Account, error) {
	utils.LogInfo("AccountService", "Обновление счёта %s", accountID)

	var account *models.Account
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		var err error
		account, err = tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}

		account.AccountType = req.AccountType
		account.Status = req.Status
		account.Currency = req.Currency
		account.IsPrimary = req.IsPrimary
		account.VerificationStatus = req.VerificationStatus

		return tx.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUserCache(ctx, account.UserID)
	utils.LogSuccess("AccountService", "Счёт %s обновлён", accountID)
	return account, nil
}

// DeleteAccount удаляет счёт без возможности восстановления. Если удаляемый
// счёт был основным и у пользователя остались другие счета, первый из
// оставшихся становится основным в той же транзакции.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	utils.LogInfo("AccountService", "Удаление счёта %s", accountID)

	var userID string
	err := s.store.Atomically(ctx, func(tx repository.AccountStore) error {
		account, err := tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		userID = account.UserID

		if account.IsPrimary {
			siblings, err := tx.FindByUserID(ctx, account.UserID)
			if err != nil {
				return err
			}
			for i := range siblings {
				if siblings[i].ID == accountID {
					continue
				}
				siblings[i].IsPrimary = true
				if err := tx.Save(ctx, &siblings[i]); err != nil {
					return err
				}
				utils.LogInfo("AccountService", "Основным назначен счёт %s", siblings[i].ID)
				break
			}
		}

		return tx.DeleteByID(ctx, accountID)
	})
	if err != nil {
		utils.LogError("AccountService", fmt.Sprintf("Ошибка удаления счёта %s", accountID), err)
		return err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.AccountKey(accountID))
	}
	s.invalidateUserCache(ctx, userID)
	utils.LogSuccess("AccountService", "Счёт %s удалён", accountID)
	return nil
}

func (s *AccountService) GetAccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	if s.cache != nil {
		var account models.Account
		if err := s.cache.GetJSON(ctx, cache.AccountKey(accountID), &account); err == nil {
			utils.LogDebug("Cache", "HIT: счёт %s", accountID)
			return &account, nil
		}
	}

	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.AccountKey(accountID), account, cache.AccountTTL); err != nil {
			utils.LogWarning("Cache", "Не удалось сохранить счёт %s в кеш: %v", accountID, err)
		}
	}

	return account, nil
}

func (s *AccountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.store.FindByAccountNumber(ctx, accountNumber)
}

func (s *AccountService) GetAccountsByUserID(ctx context.Context, userID string) ([]models.Account, error) {
	if s.cache != nil {
		var accounts []models.Account
		if err := s.cache.GetJSON(ctx, cache.UserAccountsKey(userID), &accounts); err == nil {
			utils.LogDebug("Cache", "HIT: счета пользователя %s (%d шт.)", userID, len(accounts))
			return accounts, nil
		}
	}

	accounts, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.UserAccountsKey(userID), accounts, cache.UserAccountsTTL); err != nil {
			utils.LogWarning("Cache", "Не удалось сохранить список счетов в кеш: %v", err)
		}
	}

	return accounts, nil
}

func (s *AccountService) GetPrimaryAccountByUserID(ctx context.Context, userID string) (*models.Account, error) {
	return s.store.FindPrimaryByUserID(ctx, userID)
}

func (s *AccountService) GetAccountsByType(ctx context.Context, accountType models.AccountType) ([]models.Account, error) {
	return s.store.FindByType(ctx, accountType)
}

func (s *AccountService) GetAccountsByStatus(ctx context.Context, status models.AccountStatus) ([]models.Account, error) {
	return s.store.FindByStatus(ctx, status)
}

func (s *AccountService) GetAccountsByVerificationStatus(ctx context.Context, vs models.VerificationStatus) ([]models.Account, error) {
	return s.store.FindByVerificationStatus(ctx, vs)
}

func (s *AccountService) CountAccountsByUserID(ctx context.Context, userID string) (int64, error) {
	return s.store.CountByUserID(ctx, userID)
}

// GetTotalBalanceByUserID возвращает сумму балансов всех счетов пользователя
// с точностью до копеек.
func (s *AccountService) GetTotalBalanceByUserID(ctx context.Context, userID string) (decimal.Decimal, error) {
	accounts, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, account := range accounts {
		total = total.Add(account.Balance)
	}
	return total, nil
}

// VerifyOwnership проверяет, что счёт принадлежит пользователю.
func (s *AccountService) VerifyOwnership(ctx context.Context, accountID, userID string) error {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.UserID != userID {
		utils.LogWarning("AccountService", "Попытка доступа к чужому счёту %s пользователем %s", accountID, userID)
		return ErrNotAccountOwner
	}
	return nil
}

func (s *AccountService) invalidateUserCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx,
		cache.UserAccountsKey(userID),
		cache.PrimaryAccountKey(userID),
	)
	utils.LogDebug("Cache", "Инвалидирован кеш счетов пользователя %s", userID)
}

// invalidateAccountCacheAsync — асинхронная инвалидация кеша после денежных
// операций через Worker Pool; при переполненной очереди выполняется синхронно.
func (s *AccountService) invalidateAccountCacheAsync(ctx context.Context, op string, account *models.Account) {
	if s.cache == nil || account == nil {
		return
	}

	keys := []string{
		cache.AccountKey(account.ID),
		cache.UserAccountsKey(account.UserID),
	}

	if s.workerPool == nil {
		_ = s.cache.Delete(ctx, keys...)
		return
	}

	job := worker.Job{
		ID: fmt.Sprintf("cache-invalidate-%s-%s", op, account.ID),
		Task: func() error {
			return s.cache.Delete(context.Background(), keys...)
		},
	}
	if err := s.workerPool.Submit(job); err != nil {
		utils.LogWarning("AccountService", "Worker Pool переполнен, инвалидация кеша выполняется синхронно")
		_ = s.cache.Delete(ctx, keys...)
	}
}
