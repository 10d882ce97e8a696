package repository

import (
	"context"
	"errors"

	"user-identity-service/internal/models"
)

var (
	ErrAccountNotFound    = errors.New("счёт не найден")
	ErrAccountNumberTaken = errors.New("номер счёта уже занят")
	ErrUserNotFound       = errors.New("пользователь не найден")
)

// AccountStore — контракт хранилища счетов. Бизнес-логики здесь нет:
// только CRUD и выборки по индексированным полям. Atomically исполняет
// переданную функцию как единую транзакцию: внутри неё все чтения
// блокируют строки, а изменения применяются целиком или не применяются вовсе.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Account, error)
	FindPrimaryByUserID(ctx context.Context, userID string) (*models.Account, error)
	FindByType(ctx context.Context, accountType models.AccountType) ([]models.Account, error)
	FindByStatus(ctx context.Context, status models.AccountStatus) ([]models.Account, error)
	FindByVerificationStatus(ctx context.Context, vs models.VerificationStatus) ([]models.Account, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	Save(ctx context.Context, account *models.Account) error
	SaveAll(ctx context.Context, accounts []models.Account) error
	DeleteByID(ctx context.Context, id string) error

	Atomically(ctx context.Context, fn func(AccountStore) error) error
}
