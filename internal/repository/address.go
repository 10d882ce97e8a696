package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-identity-service/internal/models"
)

var ErrAddressNotFound = errors.New("адрес не найден")

type AddressRepository struct {
	db *pgxpool.Pool
}

func NewAddressRepository(db *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{db: db}
}

const addressColumns = `id, user_id, street, city, state, postal_code, country, type, created_at`

func scanAddress(row pgx.Row) (*models.Address, error) {
	address := &models.Address{}
	err := row.Scan(
		&address.ID,
		&address.UserID,
		&address.Street,
		&address.City,
		&address.State,
		&address.PostalCode,
		&address.Country,
		&address.Type,
		&address.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return address, nil
}

func (r *AddressRepository) Create(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, street, city, state, postal_code, country, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		address.UserID, address.Street, address.City, address.State,
		address.PostalCode, address.Country, string(address.Type),
	).Scan(&address.ID, &address.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания адреса: %w", err)
	}
	return nil
}

func (r *AddressRepository) GetByID(ctx context.Context, addressID string) (*models.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	address, err := scanAddress(r.db.QueryRow(ctx, query, addressID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("ошибка получения адреса: %w", err)
	}
	return address, nil
}

func (r *AddressRepository) GetByUserID(ctx context.Context, userID string) ([]models.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения адресов: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования адреса: %w", err)
		}
		addresses = append(addresses, *address)
	}

	return addresses, rows.Err()
}

func (r *AddressRepository) Update(ctx context.Context, address *models.Address) error {
	query := `
		UPDATE addresses
		SET street = $1, city = $2, state = $3, postal_code = $4, country = $5, type = $6
		WHERE id = $7
	`

	result, err := r.db.Exec(ctx, query,
		address.Street, address.City, address.State,
		address.PostalCode, address.Country, string(address.Type), address.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления адреса: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, addressID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, addressID)
	if err != nil {
		return fmt.Errorf("ошибка удаления адреса: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAddressNotFound
	}
	return nil
}
