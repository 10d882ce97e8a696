package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
)

// stubDirectory — справочник пользователей в памяти для тестов.
type stubDirectory struct {
	users map[string]*models.User
}

func newStubDirectory(userIDs ...string) *stubDirectory {
	d := &stubDirectory{users: make(map[string]*models.User)}
	for _, id := range userIDs {
		d.users[id] = &models.User{ID: id, Username: "user-" + id}
	}
	return d
}

func (d *stubDirectory) GetByID(_ context.Context, userID string) (*models.User, error) {
	user, ok := d.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func newTestService(userIDs ...string) (*AccountService, *repository.MemoryAccountStore) {
	store := repository.NewMemoryAccountStore()
	return NewAccountService(store, newStubDirectory(userIDs...)), store
}

func mustCreate(t *testing.T, svc *AccountService, userID string, req models.CreateAccountRequest) *models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), userID, req)
	require.NoError(t, err)
	return account
}

func seedAccount(t *testing.T, store *repository.MemoryAccountStore, account models.Account) *models.Account {
	t.Helper()
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	require.NoError(t, store.Save(context.Background(), &account))
	return &account
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateAccountFirstBecomesPrimary(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	first := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	assert.True(t, first.IsPrimary, "первый счёт пользователя должен стать основным")
	assert.True(t, first.Balance.IsZero())
	assert.Equal(t, models.AccountStatusActive, first.Status)
	assert.Equal(t, models.VerificationPending, first.VerificationStatus)
	assert.Equal(t, "USD", first.Currency)

	second := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})
	assert.False(t, second.IsPrimary, "второй счёт не должен перехватывать флаг основного")

	primary, err := svc.GetPrimaryAccountByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, primary.ID)
}

func TestCreateAccountGeneratedNumberFormat(t *testing.T) {
	svc, _ := newTestService("u1")

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	assert.Regexp(t, regexp.MustCompile(`^SAV-[0-9A-F]{8}$`), account.AccountNumber)
}

func TestCreateAccountExplicitNumber(t *testing.T) {
	svc, _ := newTestService("u1", "u2")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{
		AccountType:   models.AccountTypeChecking,
		AccountNumber: "CHK-CUSTOM01",
	})
	assert.Equal(t, "CHK-CUSTOM01", account.AccountNumber)

	// повтор того же номера другим пользователем — конфликт, без повторных попыток
	_, err := svc.CreateAccount(ctx, "u2", models.CreateAccountRequest{
		AccountType:   models.AccountTypeChecking,
		AccountNumber: "CHK-CUSTOM01",
	})
	assert.ErrorIs(t, err, repository.ErrAccountNumberTaken)

	count, err := svc.CountAccountsByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, count, "конфликтный счёт не должен быть сохранён")
}

func TestCreateAccountRequestedPrimaryDemotesOld(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	first := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	second := mustCreate(t, svc, "u1", models.CreateAccountRequest{
		AccountType: models.AccountTypeChecking,
		IsPrimary:   true,
	})

	assert.True(t, second.IsPrimary)

	accounts, err := svc.GetAccountsByUserID(ctx, "u1")
	require.NoError(t, err)
	primaries := 0
	for _, a := range accounts {
		if a.IsPrimary {
			primaries++
			assert.Equal(t, second.ID, a.ID)
		}
		if a.ID == first.ID {
			assert.False(t, a.IsPrimary, "прежний основной счёт должен быть разжалован")
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestCreateAccountUnknownUser(t *testing.T) {
	svc, _ := newTestService("u1")

	_, err := svc.CreateAccount(context.Background(), "ghost", models.CreateAccountRequest{
		AccountType: models.AccountTypeSavings,
	})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSetAsPrimaryAccount(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	first := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	second := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})
	third := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeBusiness})

	updated, err := svc.SetAsPrimaryAccount(ctx, second.ID, "u1")
	require.NoError(t, err)
	assert.True(t, updated.IsPrimary)

	accounts, err := svc.GetAccountsByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for _, a := range accounts {
		switch a.ID {
		case second.ID:
			assert.True(t, a.IsPrimary)
		case first.ID, third.ID:
			assert.False(t, a.IsPrimary)
		}
	}
}

func TestSetAsPrimaryAccountForeignAccount(t *testing.T) {
	svc, _ := newTestService("u1", "u2")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	_, err := svc.SetAsPrimaryAccount(ctx, account.ID, "u2")
	assert.ErrorIs(t, err, ErrNotAccountOwner)

	// флаг владельца не тронут
	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsPrimary)
}

func TestSetAsPrimaryAccountNotFound(t *testing.T) {
	svc, _ := newTestService("u1")

	_, err := svc.SetAsPrimaryAccount(context.Background(), uuid.New().String(), "u1")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestDeposit(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	updated, err := svc.Deposit(ctx, account.ID, amount("150.25"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(amount("150.25")))
	require.NotNil(t, updated.LastActivityAt)
	assert.WithinDuration(t, time.Now().UTC(), *updated.LastActivityAt, 5*time.Second)

	updated, err = svc.Deposit(ctx, account.ID, amount("0.75"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(amount("151.00")))
}

func TestDepositInvalidAmount(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	_, err := svc.Deposit(ctx, account.ID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Deposit(ctx, account.ID, amount("-10"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.IsZero())
}

func TestDepositAccountNotFound(t *testing.T) {
	svc, _ := newTestService("u1")

	_, err := svc.Deposit(context.Background(), uuid.New().String(), amount("10"))
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestWithdraw(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	_, err := svc.Deposit(ctx, account.ID, amount("100"))
	require.NoError(t, err)

	updated, err := svc.Withdraw(ctx, account.ID, amount("40.50"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(amount("59.50")))

	// списание до нуля допустимо
	updated, err = svc.Withdraw(ctx, account.ID, amount("59.50"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	_, err := svc.Deposit(ctx, account.ID, amount("30"))
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, account.ID, amount("30.01"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(amount("30")), "неуспешное списание не должно менять баланс")
}

func TestTransfer(t *testing.T) {
	svc, _ := newTestService("u1", "u2")
	ctx := context.Background()

	from := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	to := mustCreate(t, svc, "u2", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})
	_, err := svc.Deposit(ctx, from.ID, amount("200"))
	require.NoError(t, err)

	dest, err := svc.Transfer(ctx, from.ID, to.ID, amount("75.40"))
	require.NoError(t, err)
	assert.Equal(t, to.ID, dest.ID)
	assert.True(t, dest.Balance.Equal(amount("75.40")))

	source, err := svc.GetAccountByID(ctx, from.ID)
	require.NoError(t, err)
	assert.True(t, source.Balance.Equal(amount("124.60")))

	// суммарный баланс сохраняется
	total := source.Balance.Add(dest.Balance)
	assert.True(t, total.Equal(amount("200")))
}

func TestTransferInsufficientLeavesBothUntouched(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	from := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	to := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})
	_, err := svc.Deposit(ctx, from.ID, amount("10"))
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, from.ID, to.ID, amount("10.01"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	source, err := svc.GetAccountByID(ctx, from.ID)
	require.NoError(t, err)
	dest, err := svc.GetAccountByID(ctx, to.ID)
	require.NoError(t, err)
	assert.True(t, source.Balance.Equal(amount("10")))
	assert.True(t, dest.Balance.IsZero())
}

func TestTransferDestinationNotFound(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	from := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	_, err := svc.Deposit(ctx, from.ID, amount("50"))
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, from.ID, uuid.New().String(), amount("20"))
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	source, err := svc.GetAccountByID(ctx, from.ID)
	require.NoError(t, err)
	assert.True(t, source.Balance.Equal(amount("50")), "неуспешный перевод не должен списывать средства")
}

func TestTransferToSameAccount(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	_, err := svc.Deposit(ctx, account.ID, amount("50"))
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, account.ID, account.ID, amount("20"))
	assert.ErrorIs(t, err, ErrSelfTransfer)

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(amount("50")))
}

func TestTransferInvalidAmount(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	from := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	to := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})

	_, err := svc.Transfer(ctx, from.ID, to.ID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Transfer(ctx, from.ID, to.ID, amount("-5"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTransferIgnoresCurrencyMismatch(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	from := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings, Currency: "USD"})
	to := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking, Currency: "EUR"})
	_, err := svc.Deposit(ctx, from.ID, amount("100"))
	require.NoError(t, err)

	// валюты не сравниваются: переводится номинал
	dest, err := svc.Transfer(ctx, from.ID, to.ID, amount("100"))
	require.NoError(t, err)
	assert.True(t, dest.Balance.Equal(amount("100")))
	assert.Equal(t, "EUR", dest.Currency)
}

func TestUpdateAccountWritesPrimaryFlagAsIs(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	first := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	second := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})

	// прямое выставление флага в обход процедуры смены основного счёта:
	// у пользователя окажутся два основных счёта
	updated, err := svc.UpdateAccount(ctx, second.ID, models.UpdateAccountRequest{
		AccountType:        models.AccountTypeChecking,
		Status:             models.AccountStatusActive,
		Currency:           "USD",
		IsPrimary:          true,
		VerificationStatus: models.VerificationVerified,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsPrimary)
	assert.Equal(t, models.VerificationVerified, updated.VerificationStatus)

	old, err := svc.GetAccountByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, old.IsPrimary, "UpdateAccount не снимает флаг с прежнего основного счёта")
}

func TestChangeStatus(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	updated, err := svc.ChangeStatus(ctx, account.ID, models.AccountStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusSuspended, updated.Status)

	byStatus, err := svc.GetAccountsByStatus(ctx, models.AccountStatusSuspended)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, account.ID, byStatus[0].ID)
}

func TestChangeVerificationStatus(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	updated, err := svc.ChangeVerificationStatus(ctx, account.ID, models.VerificationVerified)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, updated.VerificationStatus)
}

func TestDeleteAccountPromotesOldestSibling(t *testing.T) {
	svc, store := newTestService("u1")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	primary := seedAccount(t, store, models.Account{
		UserID: "u1", AccountNumber: "SAV-AAAA0001", AccountType: models.AccountTypeSavings,
		Status: models.AccountStatusActive, Currency: "USD", IsPrimary: true,
		CreatedAt: base,
	})
	oldest := seedAccount(t, store, models.Account{
		UserID: "u1", AccountNumber: "CHK-AAAA0002", AccountType: models.AccountTypeChecking,
		Status: models.AccountStatusActive, Currency: "USD",
		CreatedAt: base.Add(time.Minute),
	})
	seedAccount(t, store, models.Account{
		UserID: "u1", AccountNumber: "BUS-AAAA0003", AccountType: models.AccountTypeBusiness,
		Status: models.AccountStatusActive, Currency: "USD",
		CreatedAt: base.Add(2 * time.Minute),
	})

	require.NoError(t, svc.DeleteAccount(ctx, primary.ID))

	_, err := svc.GetAccountByID(ctx, primary.ID)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	newPrimary, err := svc.GetPrimaryAccountByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, newPrimary.ID, "основным становится самый ранний из оставшихся счетов")

	count, err := svc.CountAccountsByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestDeleteNonPrimaryKeepsPrimary(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	primary := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	secondary := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})

	require.NoError(t, svc.DeleteAccount(ctx, secondary.ID))

	current, err := svc.GetPrimaryAccountByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, primary.ID, current.ID)
}

func TestDeleteLastAccount(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	require.NoError(t, svc.DeleteAccount(ctx, account.ID))

	count, err := svc.CountAccountsByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.GetPrimaryAccountByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestDeleteAccountNotFound(t *testing.T) {
	svc, _ := newTestService("u1")
	assert.ErrorIs(t, svc.DeleteAccount(context.Background(), uuid.New().String()), repository.ErrAccountNotFound)
}

func TestGetTotalBalanceByUserID(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	a := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	b := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})
	_, err := svc.Deposit(ctx, a.ID, amount("100.10"))
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, b.ID, amount("0.90"))
	require.NoError(t, err)

	total, err := svc.GetTotalBalanceByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, total.Equal(amount("101.00")))
}

func TestVerifyOwnership(t *testing.T) {
	svc, _ := newTestService("u1", "u2")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	assert.NoError(t, svc.VerifyOwnership(ctx, account.ID, "u1"))
	assert.ErrorIs(t, svc.VerifyOwnership(ctx, account.ID, "u2"), ErrNotAccountOwner)
	assert.ErrorIs(t, svc.VerifyOwnership(ctx, uuid.New().String(), "u1"), repository.ErrAccountNotFound)
}

func TestGetAccountByNumber(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{
		AccountType:   models.AccountTypeSavings,
		AccountNumber: "SAV-LOOKUP01",
	})

	found, err := svc.GetAccountByNumber(ctx, "SAV-LOOKUP01")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = svc.GetAccountByNumber(ctx, "SAV-MISSING9")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestConcurrentDeposits(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := svc.Deposit(ctx, account.ID, amount("1.50"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(amount("300.00")),
		"баланс после параллельных пополнений: %s", reloaded.Balance)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	_, err := svc.Deposit(ctx, account.ID, amount("100"))
	require.NoError(t, err)

	// 40 попыток снять по 10 при балансе 100: ровно 10 успешных
	const attempts = 40
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(ctx, account.ID, amount("10"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 10, succeeded)

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.IsZero())
	assert.False(t, reloaded.Balance.IsNegative(), "баланс не должен уходить в минус")
}

func TestConcurrentTransfersPreserveTotal(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	a := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
	b := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeChecking})
	_, err := svc.Deposit(ctx, a.ID, amount("500"))
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, b.ID, amount("500"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, a.ID, b.ID, amount("7"))
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, b.ID, a.ID, amount("3"))
		}()
	}
	wg.Wait()

	total, err := svc.GetTotalBalanceByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, total.Equal(amount("1000")), "переводы не создают и не уничтожают деньги: %s", total)
}

func TestConcurrentStatusChangeDoesNotRevertDeposits(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	// смена статуса перечитывает и перезаписывает всю строку; идущие
	// параллельно пополнения не должны быть затёрты этой записью
	stop := make(chan struct{})
	var mutators sync.WaitGroup
	mutators.Add(2)
	go func() {
		defer mutators.Done()
		statuses := []models.AccountStatus{models.AccountStatusSuspended, models.AccountStatusActive}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, err := svc.ChangeStatus(ctx, account.ID, statuses[i%2])
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer mutators.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := svc.ChangeVerificationStatus(ctx, account.ID, models.VerificationVerified)
			assert.NoError(t, err)
		}
	}()

	var depositors sync.WaitGroup
	for i := 0; i < 4; i++ {
		depositors.Add(1)
		go func() {
			defer depositors.Done()
			for j := 0; j < 50; j++ {
				_, err := svc.Deposit(ctx, account.ID, amount("1.00"))
				assert.NoError(t, err)
			}
		}()
	}
	depositors.Wait()
	close(stop)
	mutators.Wait()

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(amount("200.00")),
		"пополнения потеряны из-за гонки со сменой статуса: %s", reloaded.Balance)
}

func TestConcurrentUpdateAccountDoesNotRevertDeposits(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})

	stop := make(chan struct{})
	var updaters sync.WaitGroup
	updaters.Add(1)
	go func() {
		defer updaters.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := svc.UpdateAccount(ctx, account.ID, models.UpdateAccountRequest{
				AccountType:        models.AccountTypeSavings,
				Status:             models.AccountStatusActive,
				Currency:           "USD",
				IsPrimary:          true,
				VerificationStatus: models.VerificationVerified,
			})
			assert.NoError(t, err)
		}
	}()

	var depositors sync.WaitGroup
	for i := 0; i < 4; i++ {
		depositors.Add(1)
		go func() {
			defer depositors.Done()
			for j := 0; j < 50; j++ {
				_, err := svc.Deposit(ctx, account.ID, amount("0.50"))
				assert.NoError(t, err)
			}
		}()
	}
	depositors.Wait()
	close(stop)
	updaters.Wait()

	reloaded, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(amount("100.00")),
		"пополнения потеряны из-за гонки с обновлением счёта: %s", reloaded.Balance)
}

func TestConcurrentSetPrimaryLeavesExactlyOne(t *testing.T) {
	svc, _ := newTestService("u1")
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		account := mustCreate(t, svc, "u1", models.CreateAccountRequest{AccountType: models.AccountTypeSavings})
		ids = append(ids, account.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			_, err := svc.SetAsPrimaryAccount(ctx, accountID, "u1")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	accounts, err := svc.GetAccountsByUserID(ctx, "u1")
	require.NoError(t, err)
	primaries := 0
	for _, a := range accounts {
		if a.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries, "после гонки назначений основным остаётся ровно один счёт")
}
