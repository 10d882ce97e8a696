package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-identity-service/internal/models"
	"user-identity-service/internal/utils"
)

const accountColumns = `id, user_id, account_number, account_type, status, balance,
       currency, is_primary, verification_status, last_activity_at, created_at`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAccountStore — основная реализация AccountStore поверх pgx.
// Внутри Atomically все выборки по строкам выполняются с FOR UPDATE,
// поэтому конкурирующие операции над одним счётом сериализуются.
type PostgresAccountStore struct {
	db   pgxQuerier
	pool *pgxpool.Pool
	inTx bool
}

func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{db: pool, pool: pool}
}

func (s *PostgresAccountStore) lockClause() string {
	if s.inTx {
		return " FOR UPDATE"
	}
	return ""
}

func (s *PostgresAccountStore) Atomically(ctx context.Context, fn func(AccountStore) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := &PostgresAccountStore{db: tx, pool: s.pool, inTx: true}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.AccountNumber,
		&account.AccountType,
		&account.Status,
		&account.Balance,
		&account.Currency,
		&account.IsPrimary,
		&account.VerificationStatus,
		&account.LastActivityAt,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *PostgresAccountStore) queryAccounts(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка счетов: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования счёта: %w", err)
		}
		accounts = append(accounts, *account)
	}

	return accounts, rows.Err()
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1` + s.lockClause()

	account, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return account, nil
}

func (s *PostgresAccountStore) FindByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1` + s.lockClause()

	account, err := scanAccount(s.db.QueryRow(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения счёта по номеру: %w", err)
	}
	return account, nil
}

func (s *PostgresAccountStore) FindByUserID(ctx context.Context, userID string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at, id` + s.lockClause()
	return s.queryAccounts(ctx, query, userID)
}

func (s *PostgresAccountStore) FindPrimaryByUserID(ctx context.Context, userID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND is_primary` + s.lockClause()

	account, err := scanAccount(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения основного счёта: %w", err)
	}
	return account, nil
}

func (s *PostgresAccountStore) FindByType(ctx context.Context, accountType models.AccountType) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_type = $1 ORDER BY created_at, id`
	return s.queryAccounts(ctx, query, string(accountType))
}

func (s *PostgresAccountStore) FindByStatus(ctx context.Context, status models.AccountStatus) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1 ORDER BY created_at, id`
	return s.queryAccounts(ctx, query, string(status))
}

func (s *PostgresAccountStore) FindByVerificationStatus(ctx context.Context, vs models.VerificationStatus) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE verification_status = $1 ORDER BY created_at, id`
	return s.queryAccounts(ctx, query, string(vs))
}

func (s *PostgresAccountStore) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта счетов: %w", err)
	}
	return count, nil
}

// Save выполняет upsert по id. Нарушение уникальности номера счёта
// (constraint accounts_account_number_key) превращается в ErrAccountNumberTaken —
// именно на это опирается сервис при повторной генерации номера.
func (s *PostgresAccountStore) Save(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, account_number, account_type, status, balance,
		                      currency, is_primary, verification_status, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			account_type        = EXCLUDED.account_type,
			status              = EXCLUDED.status,
			balance             = EXCLUDED.balance,
			currency            = EXCLUDED.currency,
			is_primary          = EXCLUDED.is_primary,
			verification_status = EXCLUDED.verification_status,
			last_activity_at    = EXCLUDED.last_activity_at
	`

	_, err := s.db.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.AccountNumber,
		string(account.AccountType),
		string(account.Status),
		account.Balance,
		account.Currency,
		account.IsPrimary,
		string(account.VerificationStatus),
		account.LastActivityAt,
		account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			utils.LogWarning("AccountStore", "Конфликт уникальности номера счёта %s", account.AccountNumber)
			return ErrAccountNumberTaken
		}
		return fmt.Errorf("ошибка сохранения счёта: %w", err)
	}

	return nil
}

func (s *PostgresAccountStore) SaveAll(ctx context.Context, accounts []models.Account) error {
	for i := range accounts {
		if err := s.Save(ctx, &accounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresAccountStore) DeleteByID(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления счёта: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
